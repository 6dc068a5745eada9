package main

// Template pieces shared by every command's help output.
const (
	commandList = `{{if .HasAvailableSubCommands}}Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}  {{rpad .Name .NamePadding }} {{.Short}}
{{end}}{{end}}
{{end}}`

	flagSections = `{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}`

	moreHelp = `{{if .HasAvailableSubCommands}}Run "{{.CommandPath}} <command> --help" for details on a command.
{{end}}`
)

const rootUsageTemplate = `Usage:
  mdtrans <input.md|-> [output.md|-] [flags]
  {{.CommandPath}} <command> [flags]

Examples:
  mdtrans README.md README.zh.md
  cat notes.md | mdtrans - --target ja
  mdtrans config init

` + commandList + flagSections + moreHelp

// subcommandUsageTemplate serves leaf commands.
const subcommandUsageTemplate = `Usage:
  {{.UseLine}}

` + commandList + flagSections + moreHelp

// groupUsageTemplate serves commands that only hold subcommands.
const groupUsageTemplate = `Usage:
  {{.CommandPath}} <command>

` + commandList + flagSections + moreHelp
