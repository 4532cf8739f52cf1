// Command signup registers a backend account from the terminal, applying the
// same checks and messages as the web signup page.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"rental-console/internal/auth"
	"rental-console/internal/gateway"
	"rental-console/internal/handlers"
	"rental-console/internal/models"

	"golang.org/x/term"
)

const defaultBackend = "http://localhost:9090"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Account email")
	fullName := fs.String("name", "", "Full name")
	phone := fs.String("phone", "", "Phone number")
	address := fs.String("address", "", "Address (optional)")
	company := fs.String("company", "", "Company (optional)")
	role := fs.String("role", "", "Role id or name")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	backendURL := fs.String("backend", defaultBackend, "Backend base URL")
	timeout := fs.Duration("timeout", 10*time.Second, "Backend request timeout")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"email", *email}, {"name", *fullName}, {"phone", *phone}, {"role", *role},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintln(stdout, "Usage: signup -email <email> -name <full name> -phone <phone> -role <id|name> [-password <password>] [-backend <url>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	// The flag default yields to the server's env settings.
	if *backendURL == defaultBackend {
		for _, key := range []string{"PCRS_BACKEND_BASE_URL", "BACKEND_URL"} {
			if v := os.Getenv(key); v != "" {
				*backendURL = v
				break
			}
		}
	}

	in := newPrompter(stdin)
	password, confirm := *passwordFlag, *passwordFlag
	if password == "" {
		var err error
		if password, err = in.password(stdout, "Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if confirm, err = in.password(stdout, "Confirm password: "); err != nil {
			return fmt.Errorf("failed to read password confirmation: %w", err)
		}
	}
	if err := auth.ValidateSignup(password, confirm); err != nil {
		return err
	}

	client, err := gateway.New(gateway.Config{BaseURL: *backendURL, Timeout: *timeout}, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3**timeout)
	defer cancel()

	roles, err := client.ListRoles(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	roleID, ok := resolveRole(handlers.SignupRoles(roles), *role)
	if !ok {
		return fmt.Errorf("unknown role %q", *role)
	}

	user, err := client.Signup(ctx, models.SignupRequest{
		Email:    strings.TrimSpace(*email),
		Password: password,
		FullName: strings.TrimSpace(*fullName),
		Phone:    strings.TrimSpace(*phone),
		Address:  strings.TrimSpace(*address),
		Company:  strings.TrimSpace(*company),
		RoleID:   roleID,
	})
	if err != nil {
		return fmt.Errorf("%s", handlers.SignupErrorMessage(err))
	}

	if user.ID != "" {
		fmt.Fprintf(stdout, "Account %s created successfully with ID %s\n", user.Email, user.ID)
	} else {
		fmt.Fprintf(stdout, "Account %s created successfully\n", strings.TrimSpace(*email))
	}
	return nil
}

// resolveRole matches want against role ids first, then names without case.
func resolveRole(roles []models.Role, want string) (string, bool) {
	want = strings.TrimSpace(want)
	for _, r := range roles {
		if r.ID == want {
			return r.ID, true
		}
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, want) {
			return r.ID, true
		}
	}
	return "", false
}

type prompter struct {
	stdin   io.Reader
	scanner *bufio.Scanner
}

func newPrompter(stdin io.Reader) *prompter {
	return &prompter{stdin: stdin, scanner: bufio.NewScanner(stdin)}
}

func (p *prompter) password(stdout io.Writer, label string) (string, error) {
	fmt.Fprint(stdout, label)
	defer fmt.Fprintln(stdout)

	if f, ok := p.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests.
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
