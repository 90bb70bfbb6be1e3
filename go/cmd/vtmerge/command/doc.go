/*
Copyright 2024 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package command contains the commands used by vtmerge. It is intended only
for use in vtmerge's main package and entrypoint.

The root command lives in root.go, and commands attach themselves to it
during an init function. root.go also owns commandCtx, which every
subcommand uses instead of creating its own context. Command logic is kept
in a function assigned to RunE, and each command keeps its flags in an
options struct next to its declaration.
*/
package command
