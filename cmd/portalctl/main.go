package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"equipment-portal/internal/claims"
	"equipment-portal/internal/config"
	"equipment-portal/internal/identity"
	"equipment-portal/internal/logger"
	"equipment-portal/internal/model"
	"equipment-portal/internal/schedule"
	"equipment-portal/internal/session"
	"equipment-portal/internal/submitter"
	"equipment-portal/internal/tokenstore"
)

func main() {
	cmd := flag.String("cmd", "login", "Command: login|signup|logout|whoami")
	email := flag.String("email", "", "Account email")
	password := flag.String("password", "", "Account password")
	confirm := flag.String("confirm", "", "Password confirmation (signup)")
	firstName := flag.String("first-name", "", "First name (signup)")
	lastName := flag.String("last-name", "", "Last name (signup)")
	studentID := flag.String("student-id", "", "Student ID (signup)")
	yearGroup := flag.String("year-group", "", "Year group (signup)")
	serverFlag := flag.String("server", "", "Override identity base URL (e.g. https://api.example.com)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if *serverFlag != "" {
		cfg.IdentityBaseURL = strings.TrimRight(*serverFlag, "/")
	}

	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCLI(cfg)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	switch *cmd {
	case "login":
		err = c.login(ctx, submitter.LoginForm{Email: *email, Password: *password})
	case "signup":
		if *confirm == "" {
			*confirm = *password
		}
		err = c.signup(ctx, submitter.SignupForm{
			FirstName:            *firstName,
			LastName:             *lastName,
			Email:                *email,
			StudentID:            *studentID,
			YearGroup:            *yearGroup,
			Password:             *password,
			PasswordConfirmation: *confirm,
		})
	case "logout":
		err = c.manager.Logout(ctx)
		if err == nil {
			fmt.Println("Logged out")
		}
	case "whoami":
		err = c.whoami(ctx)
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

type cli struct {
	manager   *session.Manager
	identity  *identity.Client
	domains   []string
	navigated chan string
}

func newCLI(cfg *config.Config) (*cli, error) {
	policy, err := session.ParsePolicy(cfg.ApprovalCheckPolicy)
	if err != nil {
		return nil, err
	}

	store, err := tokenstore.NewFile(cfg.TokenFile, cfg.TokenPassphrase)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}

	client := identity.NewClient(cfg.IdentityBaseURL, identity.Endpoints{
		TokenCreate:  cfg.IdentityTokenPath,
		TokenRefresh: cfg.IdentityRefreshPath,
		Me:           cfg.IdentityMePath,
		Users:        cfg.IdentityUsersPath,
	}, cfg.IdentityTimeout)

	return &cli{
		manager:   session.NewManager(client, store, policy),
		identity:  client,
		domains:   cfg.InstitutionDomains,
		navigated: make(chan string, 1),
	}, nil
}

func (c *cli) submitter() *submitter.Submitter {
	return submitter.New(c.manager, c.identity, submitter.Options{
		InstitutionDomains: c.domains,
		Scheduler:          schedule.Timer{},
		Navigate: func(target string) {
			c.navigated <- target
		},
	})
}

func (c *cli) login(ctx context.Context, form submitter.LoginForm) error {
	sub := c.submitter()
	result, err := sub.SubmitLogin(ctx, form)
	if err != nil {
		return err
	}
	return c.finish(ctx, sub, result)
}

func (c *cli) signup(ctx context.Context, form submitter.SignupForm) error {
	sub := c.submitter()
	result, err := sub.SubmitSignup(ctx, form)
	if err != nil {
		return err
	}
	return c.finish(ctx, sub, result)
}

// finish prints the attempt message and waits out the redirect delay.
func (c *cli) finish(ctx context.Context, sub *submitter.Submitter, result model.AttemptResult) error {
	fmt.Println(result.Message)
	if result.Redirect == nil {
		return nil
	}

	select {
	case target := <-c.navigated:
		fmt.Println("->", target)
	case <-ctx.Done():
		if sub.Close() {
			fmt.Println("Redirect canceled")
		}
	}
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	user, err := c.manager.CurrentUser(ctx)
	switch {
	case errors.Is(err, model.ErrNotAuthenticated):
		fmt.Println("Not logged in")
		return nil
	case errors.Is(err, model.ErrSessionExpired):
		fmt.Println(session.ReasonSessionExpired)
		return nil
	case err != nil:
		return err
	}

	fmt.Printf("%s (id %d)\n", user.Email, user.ID)
	fmt.Println("Approval:", user.ApprovalStatus)
	if user.Role != "" {
		fmt.Println("Role:", user.Role)
	}

	if access, ok, _ := c.manager.AccessToken(ctx); ok {
		if tc, err := claims.Inspect(access); err == nil && tc.ExpiresAt != nil {
			fmt.Println("Access token expires:", tc.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
