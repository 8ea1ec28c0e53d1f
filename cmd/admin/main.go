// adminユーザーを作るコマンド
//
//	go run ./cmd/admin -username root
//
// パスワードは端末から入力する（ADMIN_PASSWORDがあればそれを使う）
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/logging"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "admin:", err)
		os.Exit(1)
	}
}

func run() error {
	username := flag.String("username", "", "admin username")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.IsDev())

	if *username == "" {
		return errors.New("-username is required")
	}
	password, err := readPassword()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if cfg.Store == config.StoreMemory {
		log.Warn().Msg("STORE=memory: the admin disappears when this command exits")
	}

	ctx := context.Background()
	repos, err := app.OpenRepos(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repos.Close()

	uc := auth.NewRegisterUserUsecase(
		repos.Users,
		validator.NewAuthValidator(),
		auth.NewBcryptPasswordHasher(0),
		auth.SystemClock{},
		true,
	)
	out, err := uc.Execute(ctx, auth.RegisterUserInput{
		Username: *username,
		Password: password,
		Role:     "admin",
	})
	if err != nil {
		return fmt.Errorf("create admin %q: %w", *username, err)
	}
	log.Info().Int64("user_id", out.User.ID).Str("username", out.User.Username).Msg("admin created")
	return nil
}

func readPassword() (string, error) {
	if p := os.Getenv("ADMIN_PASSWORD"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
