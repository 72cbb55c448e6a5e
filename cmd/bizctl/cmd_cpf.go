package main

import (
	"fmt"

	"github.com/Freeeeeet/bizsuite/internal/cpf"
	"github.com/spf13/cobra"
)

var cpfCmd = &cobra.Command{
	Use:   "cpf",
	Short: "Validate and format CPF numbers",
}

var cpfValidateCmd = &cobra.Command{
	Use:   "validate <cpf>...",
	Short: "Check CPF verification digits",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCPFValidate,
}

var cpfFormatCmd = &cobra.Command{
	Use:   "format <cpf>",
	Short: "Print a CPF with the 000.000.000-00 mask",
	Args:  cobra.ExactArgs(1),
	RunE:  runCPFFormat,
}

func init() {
	cpfCmd.AddCommand(cpfValidateCmd)
	cpfCmd.AddCommand(cpfFormatCmd)
}

func runCPFValidate(cmd *cobra.Command, args []string) error {
	invalid := 0
	for _, a := range args {
		if cpf.Validate(a) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", a)
			continue
		}
		invalid++
		fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid\n", a)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d CPFs invalid", invalid, len(args))
	}
	return nil
}

func runCPFFormat(cmd *cobra.Command, args []string) error {
	if !cpf.Validate(args[0]) {
		return fmt.Errorf("invalid CPF %q", args[0])
	}
	formatted, err := cpf.Format(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatted)
	return nil
}
