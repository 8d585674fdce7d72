package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/trademon/trademon/internal/secret"
	"github.com/trademon/trademon/pkg/client"
)

const secretEnvHint = secret.EnvKey

func newAPIClient(url string, timeout time.Duration) *client.Client {
	cfg := client.DefaultConfig()
	if url != "" {
		cfg.BaseURL = url
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return client.New(cfg)
}

func requireReachable(ctx context.Context, c *client.Client, url string) error {
	if !c.IsReachable(ctx) {
		target := url
		if target == "" {
			target = client.DefaultConfig().BaseURL
		}
		return fmt.Errorf("server not reachable at %s - start it first with 'trademon serve'", target)
	}
	return nil
}

func runEngineStart(f EngineFlags) error {
	ctx := context.Background()
	c := newAPIClient(f.APIUrl, f.APITimeout)
	if err := requireReachable(ctx, c, f.APIUrl); err != nil {
		return err
	}
	url, err := c.StartEngine(ctx, f.Port)
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

func runEngineStop(f EngineFlags) error {
	ctx := context.Background()
	c := newAPIClient(f.APIUrl, f.APITimeout)
	if err := requireReachable(ctx, c, f.APIUrl); err != nil {
		return err
	}
	if err := c.StopEngine(ctx); err != nil {
		return err
	}
	fmt.Println("stopped")
	return nil
}

func runEngineStatus(f EngineFlags) error {
	ctx := context.Background()
	c := newAPIClient(f.APIUrl, f.APITimeout)
	if err := requireReachable(ctx, c, f.APIUrl); err != nil {
		return err
	}
	st, err := c.EngineStatus(ctx)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func runTrades(f TradesFlags) error {
	ctx := context.Background()
	c := newAPIClient(f.APIUrl, f.APITimeout)
	if err := requireReachable(ctx, c, f.APIUrl); err != nil {
		return err
	}
	trades, err := c.Trades(ctx, f.Limit)
	if err != nil {
		return err
	}
	printJSON(trades)
	return nil
}

func runSecretEncrypt(value string) error {
	out, err := secret.Encrypt(value)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
