package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fleshka4/dex-aggregator/internal/app"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	configPath string
	logLevel   string
	account    string
	jsonOutput bool
	assumeYes  bool

	session *app.App
)

var rootCmd = &cobra.Command{
	Use:   "dexctl",
	Short: "Quote and swap through the DEX aggregator from a terminal",
	Long: `dexctl talks to the aggregator contract with the keys from the config
file. Quotes are read-only; swaps and liquidity changes ask before signing
unless wallet.auto_confirm is set.

Examples:
  dexctl quote 100 SEFI CHLOE
  dexctl swap 100 SEFI CHLOE --slippage 100
  dexctl balances --account 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
  dexctl position amm1`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: open,
	PersistentPostRun: func(*cobra.Command, []string) {
		if session != nil {
			session.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or "+app.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "log level")
	rootCmd.PersistentFlags().StringVar(&account, "account", "", "account to act as (default: first configured key)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "output JSON")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		color.Red("\nError: %v\n", err)
		os.Exit(1)
	}
}

func open(*cobra.Command, []string) error {
	_ = godotenv.Load()

	path := configPath
	if path == "" {
		path = app.ConfigPath()
	}

	opts := app.Options{LogLevel: logLevel, Confirm: confirmTx}
	if account != "" {
		if !common.IsHexAddress(account) {
			return errors.Errorf("bad account %q", account)
		}
		opts.Account = common.HexToAddress(account)
	}

	a, err := app.New(path, opts)
	if err != nil {
		return err
	}
	session = a
	return nil
}

func confirm(prompt string) bool {
	if assumeYes {
		return true
	}
	fmt.Printf("%s (y/N): ", prompt)

	resp, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	return resp == "y" || resp == "yes"
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "json.MarshalIndent")
	}
	fmt.Println(string(out))
	return nil
}
