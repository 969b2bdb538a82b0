package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fleshka4/dex-aggregator/internal/amount"
	"github.com/fleshka4/dex-aggregator/internal/executor"
	"github.com/fleshka4/dex-aggregator/internal/quote"
	"github.com/fleshka4/dex-aggregator/internal/service/dto"
)

var (
	slippageBps     int
	recipient       string
	allowHighImpact bool
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List the registered tokens and pools",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		tokens := session.Session.Tokens()
		pools := session.Session.Pools()
		if jsonOutput {
			return printJSON(map[string]any{"tokens": tokens, "pools": pools})
		}

		fmt.Println()
		for _, t := range tokens {
			fmt.Printf("  %-8s %-3d %s\n", color.YellowString(t.Symbol), t.Decimals, t.Address.Hex())
		}
		fmt.Println()
		for _, p := range pools {
			fmt.Printf("  %-8s %s/%s  fee %d bps  %s\n", p.ID, p.TokenA.Symbol, p.TokenB.Symbol, p.FeeBps, p.Address.Hex())
		}
		fmt.Println()
		return nil
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <from> <to>",
	Short: "Quote selling amount of one token for another",
	Example: `  dexctl quote 100 SEFI CHLOE
  dexctl quote 0.5 CHLOE SEFI --json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := session.Session.Quote(cmd.Context(), dto.QuoteRequest{Amount: args[0], From: args[1], To: args[2]})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(quoteView(q))
		}
		displayQuote(q)
		return nil
	},
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Show what one unit of each token buys in every pool it trades in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		prices, err := session.Session.Prices(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(prices)
		}

		fmt.Println()
		for _, p := range prices {
			fmt.Printf("  1 %-8s = %s %s  via %s\n",
				color.YellowString(p.From.Symbol), amount.Format(p.AmountOut, p.To.Decimals), color.YellowString(p.To.Symbol), p.PoolID)
		}
		fmt.Println()
		return nil
	},
}

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <from> <to>",
	Short: "Swap through the aggregator, approving the input token if needed",
	Example: `  dexctl swap 100 SEFI CHLOE
  dexctl swap 100 SEFI CHLOE --slippage 100 --recipient 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 -y`,
	Args: cobra.ExactArgs(3),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(tokensCmd, quoteCmd, pricesCmd, swapCmd)

	swapCmd.Flags().IntVar(&slippageBps, "slippage", -1, "slippage tolerance in bps (default from config)")
	swapCmd.Flags().StringVar(&recipient, "recipient", "", "address receiving the output (default: the swapping account)")
	swapCmd.Flags().BoolVar(&allowHighImpact, "allow-high-impact", false, "submit even when price impact is 10% or more")
}

func runSwap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req := dto.IntentRequest{
		QuoteRequest: dto.QuoteRequest{Amount: args[0], From: args[1], To: args[2]},
		Recipient:    common.HexToAddress(recipient),
	}
	if slippageBps >= 0 {
		req.SlippageBps = &slippageBps
	}

	in, q, err := session.Session.BuildIntent(ctx, req)
	if err != nil {
		return err
	}

	if !jsonOutput {
		displayQuote(q)
		fmt.Printf("  Min received:      %s %s (slippage %d bps)\n",
			amount.Format(in.MinAmountOut, in.TokenOut.Decimals), color.YellowString(in.TokenOut.Symbol), in.SlippageBps)
		fmt.Printf("  Recipient:         %s\n", in.Recipient.Hex())
		if !in.Deadline.IsZero() {
			fmt.Printf("  Valid until:       %s\n", in.Deadline.Format("15:04:05"))
		}
		fmt.Println()
	}

	if q.Severity() == quote.SeverityInvalid && !allowHighImpact {
		return errors.Errorf("price impact %s is too high, pass --allow-high-impact to swap anyway", bps(q.PriceImpactBps))
	}
	if !confirm("Submit swap?") {
		fmt.Println("\nSwap cancelled.")
		return nil
	}

	res, err := session.Session.Swap(ctx, in, printPhase)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(res)
	}
	color.Green("\n✓ Swapped")
	if rcpt := res.Receipt; rcpt != nil && rcpt.AmountOut != nil {
		fmt.Printf("  Received:          %s %s\n", amount.Format(rcpt.AmountOut, in.TokenOut.Decimals), color.YellowString(in.TokenOut.Symbol))
	}
	fmt.Printf("  Tx:                %s\n\n", color.CyanString(res.TxHash.Hex()))
	return nil
}

func displayQuote(q *quote.Quote) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                        QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", amount.Format(q.AmountIn, q.TokenIn.Decimals), color.YellowString(q.TokenIn.Symbol))
	fmt.Printf("  To:                ~%s %s\n", amount.Format(q.Expected(), q.TokenOut.Decimals), color.YellowString(q.TokenOut.Symbol))
	if q.Authoritative != nil {
		fmt.Printf("  Client estimate:   %s\n", amount.Format(q.AmountOut, q.TokenOut.Decimals))
	}
	fmt.Printf("  Pool:              %s (reserves v%d)\n", q.Pool().ID, q.DerivedFrom.Version)
	fmt.Printf("  Price impact:      %s\n", severityColor(q.Severity())("%s", bps(q.PriceImpactBps)))
}

func severityColor(s quote.Severity) func(string, ...interface{}) string {
	switch s {
	case quote.SeverityLow:
		return color.GreenString
	case quote.SeverityWarning:
		return color.YellowString
	default:
		return color.RedString
	}
}

func bps(v int64) string {
	return fmt.Sprintf("%d.%02d%%", v/100, v%100)
}

func quoteView(q *quote.Quote) map[string]any {
	view := map[string]any{
		"from":             q.TokenIn.Symbol,
		"to":               q.TokenOut.Symbol,
		"amount_in":        q.AmountIn.String(),
		"amount_out":       q.AmountOut.String(),
		"price_impact_bps": q.PriceImpactBps,
		"severity":         q.Severity(),
		"pool":             q.Pool().ID,
	}
	if q.Authoritative != nil {
		view["authoritative_amount_out"] = q.Authoritative.String()
	}
	return view
}

func printPhase(e executor.Event) {
	if jsonOutput {
		return
	}
	switch e.Phase {
	case executor.PhaseFailed:
		color.Red("  ✗ %s", e.Err)
	case executor.PhaseDone:
		color.Green("  ✓ %s", e.Phase)
	default:
		if e.TxHash != (common.Hash{}) {
			fmt.Printf("  · %s %s\n", e.Phase, color.CyanString(e.TxHash.Hex()))
			return
		}
		fmt.Printf("  · %s\n", e.Phase)
	}
}

// confirmTx is the wallet's signing prompt.
func confirmTx(_ context.Context, from common.Address, tx *types.Transaction) bool {
	if !jsonOutput {
		fmt.Printf("\n  Sign from %s to %s, gas %d", from.Hex(), tx.To().Hex(), tx.Gas())
		if v := tx.Value(); v != nil && v.Cmp(big.NewInt(0)) > 0 {
			fmt.Printf(", value %s", v)
		}
		fmt.Println()
	}
	return confirm("  Sign?")
}
