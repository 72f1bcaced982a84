package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"devtoken/crypto"
)

const envJWTSecret = "DEVTOKEN_JWT_SECRET"

func runKeygenCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "", "Path of the keystore file to create")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*out) == "" {
		return usage(stderr, "keygen --out FILE")
	}
	if _, err := os.Stat(*out); err == nil {
		return fail(stderr, fmt.Errorf("%s already exists", *out))
	}
	secret, err := g.pass()
	if err != nil {
		return fail(stderr, err)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return fail(stderr, err)
	}
	if err := crypto.SaveToKeystore(*out, key, secret); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Keystore written to %s\n", *out)
	fmt.Fprintf(stdout, "Address: %s\n", key.PubKey().Address().String())
	return 0
}

func runAddressCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keystore := fs.String("keystore", g.keystore, "Keystore file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*keystore) == "" {
		return usage(stderr, "address --keystore FILE")
	}
	g.keystore = *keystore
	addr, err := g.keystoreAddress()
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, addr.String())
	return 0
}

func runJWTCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jwt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("sub", "", "Caller address placed in the subject claim")
	scope := fs.String("scope", "", "Space separated scopes, e.g. admin")
	issuer := fs.String("iss", "devtoken", "Issuer claim")
	audience := fs.String("aud", "devtoken-gateway", "Audience claim")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	addr, err := crypto.ParseAddress(*subject)
	if err != nil {
		return fail(stderr, fmt.Errorf("--sub: %w", err))
	}
	secret := strings.TrimSpace(os.Getenv(envJWTSecret))
	if secret == "" {
		return fail(stderr, errors.New(envJWTSecret+" is not set"))
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": addr.String(),
		"iat": now.Unix(),
		"exp": now.Add(*ttl).Unix(),
	}
	if *issuer != "" {
		claims["iss"] = *issuer
	}
	if *audience != "" {
		claims["aud"] = *audience
	}
	if s := strings.TrimSpace(*scope); s != "" {
		claims["scope"] = s
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, signed)
	return 0
}
