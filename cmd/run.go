package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/ai"
)

const (
	PromptExtract  = "Extract profile"
	PromptScore    = "Score fit"
	PromptOutreach = "Write outreach"
	PromptMap      = "Show page map"
	PromptInspect  = "Inspect anchors"
	PromptRescan   = "Scan another page"
	PromptExit     = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Next step",
	Items: []string{PromptExtract, PromptScore, PromptOutreach, PromptMap, PromptInspect, PromptRescan, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run [file|url]",
	Short: "Scan a page and work through the candidate interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		a.logger.Info("starting the talent-scout", zap.String("version", version), zap.Bool("ai", a.session.AIConfigured()))

		r := &runner{app: a, job: ""}
		if job, _ := cmd.Flags().GetString("job"); job != "" {
			if r.job, err = readJob(job); err != nil {
				return fmt.Errorf("reading job: %w", err)
			}
		}

		var target string
		if len(args) == 1 {
			target = args[0]
		}
		return r.run(cmd.Context(), target)
	},
}

func init() {
	runCmd.Flags().String("job", "", "job description text or a file containing it")
	rootCmd.AddCommand(runCmd)
}

// runner keeps the state of one interactive session.
type runner struct {
	app       *scoutApp
	job       string
	candidate *ai.Candidate
}

func (r *runner) run(ctx context.Context, target string) error {
	if err := r.scan(ctx, target); err != nil {
		return err
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		if err := r.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			r.app.logger.Error("action failed", zap.String("action", action), zap.String("reason", ai.UserMessage(err)))
		}
	}
}

func (r *runner) handleAction(ctx context.Context, action string) error {
	log := r.app.logger

	switch action {
	case PromptExtract:
		candidate, err := r.app.session.ExtractProfile(ctx, "", "")
		if err != nil {
			return err
		}
		r.candidate = candidate
		log.Info("candidate extracted", zap.String("name", candidate.FullName), zap.String("source", candidate.Source))
		return printOutput(rootCmd.OutOrStdout(), OutputYAML, candidate)
	case PromptScore:
		if err := r.ensureCandidate(ctx); err != nil {
			return err
		}
		if err := r.ensureJob(); err != nil {
			return err
		}
		result, err := r.app.session.ScoreFit(ctx, r.candidate, r.job)
		if err != nil {
			return err
		}
		log.Info("fit scored", zap.Int("score", result.Score), zap.String("verdict", result.Verdict))
		return printOutput(rootCmd.OutOrStdout(), OutputYAML, result)
	case PromptOutreach:
		if err := r.ensureCandidate(ctx); err != nil {
			return err
		}
		message, err := r.app.session.WriteOutreach(ctx, r.candidate, r.job)
		if err != nil {
			return err
		}
		return printOutput(rootCmd.OutOrStdout(), OutputText, message)
	case PromptMap:
		last := r.app.session.LastScan()
		if last == nil {
			return errors.New("nothing scanned yet")
		}
		return printOutput(rootCmd.OutOrStdout(), OutputText, last.Map)
	case PromptInspect:
		return r.inspect()
	case PromptRescan:
		r.candidate = nil
		return r.scan(ctx, "")
	case PromptExit:
		log.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// scan asks for a target when none is given.
func (r *runner) scan(ctx context.Context, target string) error {
	if strings.TrimSpace(target) == "" {
		p := promptui.Prompt{
			Label: "Profile file or URL",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("target is required")
				}
				return nil
			},
		}
		var err error
		if target, err = p.Run(); err != nil {
			return err
		}
	}

	res, err := r.app.session.ScanTarget(ctx, strings.TrimSpace(target), false)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", target, err)
	}

	r.app.logger.Info("page scanned",
		zap.String("url", res.URL),
		zap.String("site", res.Site),
		zap.Int("lines", res.Lines),
		zap.Int("hidden", res.Hidden),
		zap.Int("forbidden", res.Forbidden),
	)
	return nil
}

func (r *runner) ensureCandidate(ctx context.Context) error {
	if r.candidate != nil {
		return nil
	}
	return r.handleAction(ctx, PromptExtract)
}

func (r *runner) ensureJob() error {
	if strings.TrimSpace(r.job) != "" {
		return nil
	}
	p := promptui.Prompt{Label: "Job description (text or file)"}
	value, err := p.Run()
	if err != nil {
		return err
	}
	r.job, err = readJob(value)
	return err
}

func (r *runner) inspect() error {
	p := promptui.Prompt{Label: "Anchors (comma separated)"}
	value, err := p.Run()
	if err != nil {
		return err
	}

	anchors, err := parseAnchors(value)
	if err != nil {
		return err
	}
	return printOutput(rootCmd.OutOrStdout(), OutputYAML, r.app.session.Inspect(anchors))
}

func parseAnchors(value string) ([]int, error) {
	var anchors []int
	for _, field := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' }) {
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid anchor %q", field)
		}
		anchors = append(anchors, n)
	}
	if len(anchors) == 0 {
		return nil, errors.New("no anchors given")
	}
	return anchors, nil
}
