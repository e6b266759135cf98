package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/navihire/internal/assistant"
	"github.com/spigell/navihire/internal/logger"
	"github.com/spigell/navihire/internal/resume"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("message", "m", "", "send a single message and exit")
	chatCmd.Flags().StringSliceP("resume", "r", nil, "resume file to attach (repeatable)")
	chatCmd.Flags().String("job", "", "job description file (JSON or YAML)")
	chatCmd.Flags().StringSlice("travel", nil, "travel request as origin:destination[:YYYY-MM-DD] (repeatable)")
	chatCmd.Flags().String("session", "", "continue an existing session")
	chatCmd.Flags().String("user", "cli", "user id recorded in the session")
}

func chat(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Replies go to stdout, so logs go to stderr.
	logger, err := logger.New(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if err := config.validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	env, err := newApplication(ctx, config, nil, logger)
	if err != nil {
		logger.Fatal("starting the assistant", zap.Error(err))
	}
	defer env.close()

	req, err := requestFromFlags(cmd)
	if err != nil {
		logger.Fatal("reading chat flags", zap.Error(err))
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		logger.Fatal("creating a renderer", zap.Error(err))
	}

	if req.Message != "" {
		if _, err := turn(ctx, env.service, renderer, req); err != nil {
			logger.Fatal("chat turn failed", zap.Error(err))
		}
		return
	}

	prompt := promptui.Prompt{Label: "You"}
	for {
		input, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("reading input", zap.Error(err))
		}

		input = strings.TrimSpace(input)
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return
		}

		req.Message = input
		reply, err := turn(ctx, env.service, renderer, req)
		if err != nil {
			logger.Error("chat turn failed", zap.Error(err))
			continue
		}

		// Attachments are sent once; later turns reuse the session copy.
		req = assistant.Request{SessionID: reply.SessionID, UserID: req.UserID}
	}
}

func turn(ctx context.Context, service *assistant.Service, renderer *glamour.TermRenderer, req assistant.Request) (*assistant.Reply, error) {
	reply, err := service.Handle(ctx, req)
	if reply == nil {
		return nil, err
	}

	out, renderErr := renderer.Render(reply.Message)
	if renderErr != nil {
		out = reply.Message + "\n"
	}
	fmt.Printf("[%s] %s", reply.Agent, out)

	return reply, err
}

func requestFromFlags(cmd *cobra.Command) (assistant.Request, error) {
	flags := cmd.Flags()
	message, _ := flags.GetString("message")
	sessionID, _ := flags.GetString("session")
	userID, _ := flags.GetString("user")
	resumePaths, _ := flags.GetStringSlice("resume")
	jobPath, _ := flags.GetString("job")
	travel, _ := flags.GetStringSlice("travel")

	req := assistant.Request{
		SessionID: sessionID,
		UserID:    userID,
		UserRole:  viper.GetString("user-role"),
		Message:   strings.TrimSpace(message),
	}

	for _, path := range resumePaths {
		content, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("reading resume: %w", err)
		}
		req.Resumes = append(req.Resumes, resume.Upload{Filename: filepath.Base(path), Content: content})
	}

	if jobPath != "" {
		job, err := readJobDescription(jobPath)
		if err != nil {
			return req, err
		}
		req.JobDescription = job
	}

	for _, arg := range travel {
		tr, err := parseTravel(arg)
		if err != nil {
			return req, err
		}
		req.TravelRequests = append(req.TravelRequests, tr)
	}

	return req, nil
}

// readJobDescription accepts JSON or YAML; JSON documents are valid YAML.
func readJobDescription(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job description: %w", err)
	}

	var job map[string]any
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parsing job description %q: %w", path, err)
	}
	if len(job) == 0 {
		return nil, fmt.Errorf("job description %q is empty", path)
	}
	return job, nil
}

func parseTravel(arg string) (workflow.TravelRequest, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return workflow.TravelRequest{}, fmt.Errorf("travel request %q must look like origin:destination[:YYYY-MM-DD]", arg)
	}

	tr := workflow.TravelRequest{
		Origin:      strings.TrimSpace(parts[0]),
		Destination: strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 {
		tr.Date = strings.TrimSpace(parts[2])
	}
	if tr.Origin == "" || tr.Destination == "" {
		return workflow.TravelRequest{}, fmt.Errorf("travel request %q needs both origin and destination", arg)
	}
	return tr, nil
}
