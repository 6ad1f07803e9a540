package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saulo-duarte/chronos-prep/internal/client"
	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/saulo-duarte/chronos-prep/internal/session"
	"github.com/spf13/cobra"
)

type answerSheet interface {
	SelectOption(idx, option int) error
	LockAnswer(idx int) (bool, error)
}

// applyAnswers selects each non-negative answer, optionally locking it.
// Questions restored as locked keep their earlier answer.
func applyAnswers(sheet answerSheet, answers []int, lock bool) error {
	for i, a := range answers {
		if a < 0 {
			continue
		}
		err := sheet.SelectOption(i, a)
		if errors.Is(err, session.ErrLocked) {
			continue
		}
		if err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
		if lock {
			if _, err := sheet.LockAnswer(i); err != nil && !errors.Is(err, session.ErrNoSelection) {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
		}
	}
	return nil
}

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Block until no assessment set is generating",
	RunE:  runWait,
}

var takeCmd = &cobra.Command{
	Use:   "take SET_ID",
	Short: "Answer a topic from the command line and save or submit it",
	Args:  cobra.ExactArgs(1),
	RunE:  runTake,
}

func init() {
	waitCmd.Flags().Duration("interval", client.DefaultPollInterval, "Delay between polls")
	waitCmd.Flags().Int("max-polls", client.DefaultMaxPolls, "Give up after this many polls")

	takeCmd.Flags().String("topic", "", "Topic id (optional for practice sets)")
	takeCmd.Flags().String("answers", "", "Comma separated option indexes, -1 to skip")
	takeCmd.Flags().Bool("lock", false, "Lock every selected answer")
	takeCmd.Flags().Bool("submit", false, "Submit after answering")
	takeCmd.Flags().Bool("retake", false, "Reset a completed topic before answering")
}

func storeFromFlags(cmd *cobra.Command) (*client.HTTPStore, error) {
	api, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		return nil, errors.New("a token is required (--token or PREP_TOKEN)")
	}
	return client.NewHTTPStore(api, token), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runWait(cmd *cobra.Command, _ []string) error {
	config.InitLogger(envDefault("LOG_LEVEL", "warn"), "text")
	store, err := storeFromFlags(cmd)
	if err != nil {
		return err
	}
	interval, _ := cmd.Flags().GetDuration("interval")
	maxPolls, _ := cmd.Flags().GetInt("max-polls")

	sets, err := client.WaitForGeneration(cmd.Context(), store, interval, maxPolls)
	if err != nil {
		return err
	}
	return printJSON(cmd, sets)
}

func parseAnswers(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("answer %d: %w", i+1, err)
		}
		out[i] = n
	}
	return out, nil
}

func runTake(cmd *cobra.Command, args []string) error {
	settings := config.Load()
	config.InitLogger(envDefault("LOG_LEVEL", "warn"), "text")
	ctx := cmd.Context()
	setID := args[0]

	store, err := storeFromFlags(cmd)
	if err != nil {
		return err
	}
	topicID, _ := cmd.Flags().GetString("topic")
	rawAnswers, _ := cmd.Flags().GetString("answers")
	answers, err := parseAnswers(rawAnswers)
	if err != nil {
		return err
	}

	cache := session.NewLocalCache(ctx, settings.RedisAddr, 24*time.Hour)
	opts := session.DefaultOptions()

	c, err := session.Open(ctx, store, cache, setID, topicID, opts)
	if errors.Is(err, session.ErrAlreadyCompleted) {
		if retake, _ := cmd.Flags().GetBool("retake"); retake {
			if err := session.RetakeTopic(ctx, store, cache, setID, topicID); err != nil {
				return err
			}
			c, err = session.Open(ctx, store, cache, setID, topicID, opts)
		}
	}
	if err != nil {
		return err
	}
	defer c.Close()

	lock, _ := cmd.Flags().GetBool("lock")
	if err := applyAnswers(c, answers, lock); err != nil {
		return err
	}

	if submit, _ := cmd.Flags().GetBool("submit"); submit {
		res, err := c.Submit(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	}

	if err := c.Flush(ctx); err != nil {
		return err
	}
	return printJSON(cmd, c.Snapshot())
}
