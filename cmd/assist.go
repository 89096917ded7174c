package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var profileCmd = &cobra.Command{
	Use:   "profile <file|url>",
	Short: "Scan a profile page and extract a structured candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := scanTarget(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		candidate, err := a.session.ExtractProfile(cmd.Context(), res.Map, res.URL)
		if err != nil {
			a.logger.Debug("extract profile", zap.Error(err))
			return userError(err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == OutputText {
			format = OutputYAML
		}
		return printOutput(cmd.OutOrStdout(), format, candidate)
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a saved candidate against a job description",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		candidatePath, _ := cmd.Flags().GetString("candidate")
		candidate, err := readCandidate(candidatePath)
		if err != nil {
			return err
		}

		jobFlag, _ := cmd.Flags().GetString("job")
		job, err := readJob(jobFlag)
		if err != nil {
			return fmt.Errorf("reading job: %w", err)
		}

		result, err := a.session.ScoreFit(cmd.Context(), candidate, job)
		if err != nil {
			a.logger.Debug("score fit", zap.Error(err))
			return userError(err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == OutputText {
			format = OutputYAML
		}
		return printOutput(cmd.OutOrStdout(), format, result)
	},
}

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Draft an outreach message for a saved candidate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		candidatePath, _ := cmd.Flags().GetString("candidate")
		candidate, err := readCandidate(candidatePath)
		if err != nil {
			return err
		}

		jobFlag, _ := cmd.Flags().GetString("job")
		job, err := readJob(jobFlag)
		if err != nil {
			return fmt.Errorf("reading job: %w", err)
		}

		message, err := a.session.WriteOutreach(cmd.Context(), candidate, job)
		if err != nil {
			a.logger.Debug("generate outreach", zap.Error(err))
			return userError(err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == OutputText {
			return printOutput(cmd.OutOrStdout(), OutputText, message)
		}
		return printOutput(cmd.OutOrStdout(), format, map[string]string{"message": message})
	},
}

func init() {
	for _, c := range []*cobra.Command{profileCmd, scoreCmd, outreachCmd} {
		c.Flags().StringP("output", "o", OutputText, "output format: text, json or yaml")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{scoreCmd, outreachCmd} {
		c.Flags().StringP("candidate", "c", "", "candidate file saved by `scout profile -o json`, - for stdin")
		c.Flags().String("job", "", "job description text or a file containing it")
		c.MarkFlagRequired("candidate")
	}
}
