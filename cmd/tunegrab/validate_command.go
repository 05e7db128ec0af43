package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tunegrab/internal/mediaid"
)

type validationRow struct {
	Input  string `json:"input"`
	Valid  bool   `json:"valid"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var file string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:         "validate [ids...]",
		Short:       "Check identifiers without fetching anything",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			raws, err := gatherIdentifiers(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(raws) == 0 {
				return errors.New("no identifiers given")
			}

			rows := make([]validationRow, 0, len(raws))
			invalid := 0
			for _, raw := range raws {
				id, err := mediaid.Parse(raw)
				row := validationRow{Input: raw, Valid: err == nil, ID: id.String()}
				var rej *mediaid.RejectedError
				if errors.As(err, &rej) {
					row.Reason = rej.Reason
					invalid++
				}
				rows = append(rows, row)
			}

			if jsonOut {
				if err := writeJSON(cmd, rows); err != nil {
					return err
				}
			} else {
				table := make([][]string, 0, len(rows))
				for _, row := range rows {
					result := row.ID
					if !row.Valid {
						result = "rejected: " + row.Reason
					}
					table = append(table, []string{row.Input, yesNo(row.Valid), result})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Input", "Valid", "Result"}, table, nil, 60))
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d identifiers rejected", invalid, len(raws))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read identifiers from a file, one per line (- for stdin)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}
