package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"alertx/internal/app"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/pkg/logger"
)

type classifyOptions struct {
	quickSymptoms []string
	urgency       string
	conditions    []string
}

func newClassifyCmd() *cobra.Command {
	opts := &classifyOptions{}
	cmd := &cobra.Command{
		Use:   "classify <description...>",
		Short: "Triage a symptom description and print the result",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts, args)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.quickSymptoms, "quick", "q", nil, "快捷症状标签，逗号分隔")
	cmd.Flags().StringVarP(&opts.urgency, "urgency", "u", "", "自述紧急程度：immediate|urgent|soon|routine")
	cmd.Flags().StringSliceVar(&opts.conditions, "condition", nil, "既往病史")
	return cmd
}

func runClassify(cmd *cobra.Command, opts *classifyOptions, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in := &ettriage.SymptomInput{
		Description:   strings.Join(args, " "),
		QuickSymptoms: opts.quickSymptoms,
		Urgency:       opts.urgency,
	}
	if len(opts.conditions) > 0 {
		in.Patient = &ettriage.PatientContext{KnownConditions: opts.conditions}
	}

	result, err := app.NewClassifier(cfg, logger.NewNop()).Analyze(cmd.Context(), in)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
