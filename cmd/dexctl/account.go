package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fleshka4/dex-aggregator/internal/amount"
	"github.com/fleshka4/dex-aggregator/internal/executor"
	"github.com/fleshka4/dex-aggregator/internal/service/dto"
)

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show the account's balance of every registered token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		balances, err := session.Session.Balances(cmd.Context())
		if err != nil {
			return err
		}
		id := session.Session.Identity()

		if jsonOutput {
			out := make(map[string]string, len(balances))
			for _, b := range balances {
				out[b.Token.Symbol] = b.Amount.String()
			}
			return printJSON(map[string]any{"account": id.Account.Hex(), "chain_id": id.ChainID, "balances": out})
		}

		fmt.Printf("\n  %s on chain %d\n\n", color.CyanString(id.Account.Hex()), id.ChainID)
		for _, b := range balances {
			fmt.Printf("  %-8s %s\n", color.YellowString(b.Token.Symbol), amount.Format(b.Amount, b.Token.Decimals))
		}
		fmt.Println()
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload balances and pool reserves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := session.Session.Refresh(cmd.Context()); err != nil {
			return err
		}
		if !jsonOutput {
			color.Green("\n✓ Refreshed\n")
		}
		return nil
	},
}

var positionCmd = &cobra.Command{
	Use:   "position <pool>",
	Short: "Show the account's liquidity in a pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := session.Session.Position(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{
				"pool":         pos.Pool.ID,
				"shares":       pos.Shares.String(),
				"total_shares": pos.TotalShares.String(),
				"share_bps":    pos.Share.Bps,
				"amount_a":     pos.Share.AmountA.String(),
				"amount_b":     pos.Share.AmountB.String(),
			})
		}

		fmt.Printf("\n  Pool:              %s\n", pos.Pool.ID)
		fmt.Printf("  Shares:            %s of %s (%s)\n", pos.Shares, pos.TotalShares, bps(pos.Share.Bps))
		fmt.Printf("  Withdrawable:      %s %s + %s %s\n\n",
			amount.Format(pos.Share.AmountA, pos.Pool.TokenA.Decimals), color.YellowString(pos.Pool.TokenA.Symbol),
			amount.Format(pos.Share.AmountB, pos.Pool.TokenB.Decimals), color.YellowString(pos.Pool.TokenB.Symbol))
		return nil
	},
}

var addLiquidityCmd = &cobra.Command{
	Use:   "add-liquidity <pool> <amount-a> [amount-b]",
	Short: "Deposit into a pool; amount-b defaults to the current reserve ratio",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := dto.AddLiquidityRequest{PoolID: args[0], AmountA: args[1]}
		if len(args) == 3 {
			req.AmountB = args[2]
		}
		if !confirm(fmt.Sprintf("Add liquidity to %s?", req.PoolID)) {
			return nil
		}

		res, err := session.Session.AddLiquidity(cmd.Context(), req, printPhase)
		if err != nil {
			return err
		}
		return printLiquidity(res)
	},
}

var removeLiquidityCmd = &cobra.Command{
	Use:   "remove-liquidity <pool> <shares>",
	Short: "Burn pool shares for the underlying tokens",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(fmt.Sprintf("Remove %s shares from %s?", args[1], args[0])) {
			return nil
		}

		res, err := session.Session.RemoveLiquidity(cmd.Context(), dto.RemoveLiquidityRequest{PoolID: args[0], Shares: args[1]}, printPhase)
		if err != nil {
			return err
		}
		return printLiquidity(res)
	},
}

func init() {
	rootCmd.AddCommand(balancesCmd, refreshCmd, positionCmd, addLiquidityCmd, removeLiquidityCmd)
}

func printLiquidity(res *executor.Result) error {
	if jsonOutput {
		return printJSON(res)
	}
	color.Green("\n✓ Done")
	if rcpt := res.Receipt; rcpt != nil && rcpt.Shares != nil {
		fmt.Printf("  Shares:            %s\n", rcpt.Shares)
	}
	fmt.Printf("  Tx:                %s\n\n", color.CyanString(res.TxHash.Hex()))
	return nil
}
