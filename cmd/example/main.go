package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/authsignal/authsignal-go/pkg/client"
	"github.com/authsignal/authsignal-go/pkg/keystore"
	"github.com/authsignal/authsignal-go/pkg/options"
	"github.com/authsignal/authsignal-go/pkg/sugar"
)

func main() {
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))

	tenantID := os.Getenv("AUTHSIGNAL_TENANT_ID")
	baseURL := os.Getenv("AUTHSIGNAL_BASE_URL")
	token := os.Getenv("AUTHSIGNAL_TOKEN")

	dir, err := os.MkdirTemp("", "authsignal-example")
	if err != nil {
		panic(err)
	}

	keys := keystore.NewFile(filepath.Join(dir, "keys.cbor"))

	c, err := client.New(
		tenantID,
		baseURL,
		keys,
		options.WithLogger(logger),
		options.WithPreferencesDir(dir),
	)
	if err != nil {
		panic(err)
	}

	c.SetToken(token)

	ctx := context.Background()

	if err := c.Push.AddCredential(ctx, "", "", keystore.Authorization{}); err != nil {
		panic(err)
	}
	fmt.Println("push credential enrolled")

	cred, err := c.Push.GetCredential(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("authenticator %s verified at %s\n", cred.UserAuthenticatorID, cred.VerifiedAt)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	challenge, err := sugar.WaitForChallenge(waitCtx, 2*time.Second, c.Push, c.QRCode)
	if err != nil {
		panic(err)
	}
	fmt.Printf("challenge %s from %s (%s)\n", challenge.ChallengeID, challenge.IPAddress, challenge.UserAgent)

	if err := c.Push.UpdateChallenge(ctx, challenge.ChallengeID, true, "", nil); err != nil {
		panic(err)
	}
	fmt.Println("challenge approved")
}
