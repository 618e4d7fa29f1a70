// seed inserts demo accounts for exercising the remediation screens locally.
// Idempotent: skips when the demo account already has devices.
//
//	demo-full:  two registered devices, so a third browser hits the device limit.
//	demo-busy:  one device with a live session, so a second browser hits the concurrent-session screen.
//
// When AUTH_JWT_SECRET is set, a bearer token for each account is printed.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"course-guard/internal/config"
	"course-guard/internal/db"
	devicedomain "course-guard/internal/device/domain"
	devicerepo "course-guard/internal/device/repository"
	identitydomain "course-guard/internal/identity/domain"
	"course-guard/internal/logging"
	policydomain "course-guard/internal/policy/domain"
	policyrepo "course-guard/internal/policy/repository"
	"course-guard/internal/security"
	sessiondomain "course-guard/internal/session/domain"
	sessionrepo "course-guard/internal/session/repository"
)

// strictRegoPolicy blocks indeterminate gate runs regardless of INDETERMINATE_POLICY. Seeded disabled.
const strictRegoPolicy = `package course_guard.access

default state := "unavailable"

state := "passed" if input.decision == "allowed"

state := input.reason if {
	input.decision == "denied"
	input.reason in {"device_limit", "concurrent"}
}
`

const (
	demoFullID     = "demo-full-0001"
	demoBusyID     = "demo-busy-0002"
	strictPolicyID = "demo-policy-strict"
	windowsAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	iphoneAgent    = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
	macAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15"
	demoTokenTTL   = 7 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Setup(cfg.LogLevel, true)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer conn.Close()

	ctx := context.Background()
	devices := devicerepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	policies := policyrepo.NewPostgresRepository(conn)

	existing, err := devices.ListByAccount(ctx, demoFullID)
	if err != nil {
		log.Fatal().Err(err).Msg("seed check")
	}
	if len(existing) > 0 {
		log.Info().Msg("Seed already applied (demo-full has devices). Skipping.")
		printTokens(cfg)
		return
	}

	now := time.Now().UTC()
	seedDevice := func(accountID, fingerprint, agent string) {
		d := &devicedomain.Device{
			ID:          uuid.New().String(),
			AccountID:   accountID,
			Fingerprint: fingerprint,
			Label:       devicedomain.LabelFor(agent),
			UserAgent:   agent,
			LastUsedAt:  now,
			CreatedAt:   now,
		}
		if err := devices.Create(ctx, d); err != nil {
			log.Fatal().Err(err).Str("account", accountID).Msg("create device")
		}
	}

	seedDevice(demoFullID, "demo-fp-windows", windowsAgent)
	seedDevice(demoFullID, "demo-fp-iphone", iphoneAgent)
	seedDevice(demoBusyID, "demo-fp-mac", macAgent)

	token, err := security.NewSessionToken()
	if err != nil {
		log.Fatal().Err(err).Msg("session token")
	}
	if err := sessions.Create(ctx, &sessiondomain.ActiveSession{
		ID:                uuid.New().String(),
		AccountID:         demoBusyID,
		TokenHash:         security.HashSessionToken(token),
		DeviceFingerprint: "demo-fp-mac",
		IPAddress:         "203.0.113.10",
		IsActive:          true,
		CreatedAt:         now,
		ExpiresAt:         now.Add(cfg.SessionLifetime()),
	}); err != nil {
		log.Fatal().Err(err).Msg("create session")
	}

	if err := policies.Create(ctx, &policydomain.Policy{
		ID:        strictPolicyID,
		Rules:     strictRegoPolicy,
		Enabled:   false,
		CreatedAt: now,
	}); err != nil {
		log.Fatal().Err(err).Msg("create policy")
	}

	log.Info().Msg("Seed completed successfully.")
	printTokens(cfg)
}

func printTokens(cfg *config.Config) {
	if cfg.AuthJWTSecret == "" {
		return
	}
	for _, id := range []identitydomain.Identity{
		{AccountID: demoFullID, Email: "full@example.com", DisplayName: "حساب ممتلئ"},
		{AccountID: demoBusyID, Email: "busy@example.com", DisplayName: "حساب مشغول"},
	} {
		tok, err := security.IssueHS256(cfg.AuthJWTSecret, id, cfg.AuthJWTIssuer, cfg.AuthJWTAudience, demoTokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("issue token")
		}
		fmt.Printf("%s: Bearer %s\n", id.AccountID, tok)
	}
}
