// Package cli carries the helpers shared by opskit commands: common output
// flags, formatter construction, progress spinners and the mapping from
// errors to process exit codes.
//
// Commands register the shared flags once on their group command:
//
//	var flags cli.CommandFlags
//	cli.RegisterOutputFlags(groupCmd, &flags)
//
// and render results through the formatter the flags select:
//
//	f, err := flags.Formatter()
//	if err != nil {
//		return err
//	}
//	return f.Table(cmd.OutOrStdout(), headers, rows, result)
//
// Long-running work goes behind WithSpinner so interactive runs show
// progress while --quiet stays clean for scripts.
package cli
