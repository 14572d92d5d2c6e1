package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"multifluid/fluid"
	"multifluid/internal/app"
	"multifluid/internal/store/sqlite"
	"multifluid/ledger"
)

func (c *cli) createCmd() *cobra.Command {
	var (
		capacity int
		void     bool
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty, locked tank",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			tank, err := a.Create(ctx, args[0], capacity)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("void") {
				tank.Ledger.SetVoidExcess(void)
				if err := a.Save(ctx, tank); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%dL per slot)\n", tank.Name, tank.Ledger.Capacity())
			return nil
		}),
	}
	cmd.Flags().IntVar(&capacity, "capacity", 0, "capacity per slot in litres (default TANK_CAPACITY_PER_SLOT)")
	cmd.Flags().BoolVar(&void, "void", false, "discard excess fluid instead of refusing it")
	return cmd
}

func (c *cli) describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe NAME",
		Short: "Print the stored fluids of a tank",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			tank, err := a.Load(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range a.Describe(tank) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "locked=%t void=%t selected=%d\n",
				tank.Ledger.Locked(), tank.Ledger.VoidExcess(), tank.Ledger.SelectedIndex())
			return nil
		}),
	}
}

func (c *cli) pushCmd() *cobra.Command {
	var (
		slot     int
		simulate bool
	)
	cmd := &cobra.Command{
		Use:   "push NAME FLUID AMOUNT",
		Short: "Fill fluid into a tank",
		Args:  cobra.ExactArgs(3),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			id, err := parseFluid(args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			tank, err := a.Load(ctx, args[0])
			if err != nil {
				return err
			}
			accepted := a.Push(ctx, tank, id, slot, amount, modeFor(simulate))
			fmt.Fprintf(cmd.OutOrStdout(), "accepted %dL of %s%s\n", accepted, id, simulatedSuffix(simulate))
			if simulate || accepted == 0 {
				return nil
			}
			return a.Save(ctx, tank)
		}),
	}
	cmd.Flags().IntVar(&slot, "slot", app.AnySlot, "fill only this slot index")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "report the result without changing the tank")
	return cmd
}

func (c *cli) pullCmd() *cobra.Command {
	var (
		slot     int
		simulate bool
	)
	cmd := &cobra.Command{
		Use:   "pull NAME FLUID AMOUNT",
		Short: "Drain fluid from a tank",
		Args:  cobra.ExactArgs(3),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			id, err := parseFluid(args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			tank, err := a.Load(ctx, args[0])
			if err != nil {
				return err
			}
			delivered := a.Pull(ctx, tank, id, slot, amount, modeFor(simulate))
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %dL of %s%s\n", delivered, id, simulatedSuffix(simulate))
			if simulate || delivered == 0 {
				return nil
			}
			return a.Save(ctx, tank)
		}),
	}
	cmd.Flags().IntVar(&slot, "slot", app.AnySlot, "drain only this slot index")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "report the result without changing the tank")
	return cmd
}

func (c *cli) lockCmd(use string, locked bool) *cobra.Command {
	short := "Lock a tank against transfers"
	if !locked {
		short = "Unlock a tank for transfers"
	}
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			tank, err := a.Load(ctx, args[0])
			if err != nil {
				return err
			}
			a.SetLock(ctx, tank, locked)
			if err := a.Save(ctx, tank); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s locked=%t\n", tank.Name, locked)
			return nil
		}),
	}
}

func (c *cli) voidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "void NAME [true|false]",
		Short: "Toggle discarding of excess fluid",
		Args:  cobra.RangeArgs(1, 2),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			enabled := true
			if len(args) == 2 {
				parsed, err := strconv.ParseBool(args[1])
				if err != nil {
					return fmt.Errorf("invalid void flag %q: %w", args[1], err)
				}
				enabled = parsed
			}
			tank, err := a.Load(ctx, args[0])
			if err != nil {
				return err
			}
			tank.Ledger.SetVoidExcess(enabled)
			if err := a.Save(ctx, tank); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s void=%t\n", tank.Name, enabled)
			return nil
		}),
	}
}

func (c *cli) selectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select NAME INDEX",
		Short: "Set the selected slot index (-1 clears it)",
		Args:  cobra.ExactArgs(2),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			index, err := strconv.ParseInt(args[1], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}
			if index < int64(ledger.NoSelection) {
				return fmt.Errorf("invalid index %d: must be %d or greater", index, ledger.NoSelection)
			}
			tank, err := a.Load(ctx, args[0])
			if err != nil {
				return err
			}
			tank.Ledger.SetSelectedIndex(int8(index))
			if err := a.Save(ctx, tank); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s selected=%d\n", tank.Name, index)
			return nil
		}),
	}
	// -1 is an index, not a shorthand flag.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (c *cli) moveCmd() *cobra.Command {
	var simulate bool
	cmd := &cobra.Command{
		Use:   "move SOURCE DESTINATION FLUID AMOUNT",
		Short: "Move fluid between two tanks",
		Args:  cobra.ExactArgs(4),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			if args[0] == args[1] {
				return fmt.Errorf("source and destination are the same tank")
			}
			id, err := parseFluid(args[2])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[3])
			if err != nil {
				return err
			}
			src, err := a.Load(ctx, args[0])
			if err != nil {
				return err
			}
			dst, err := a.Load(ctx, args[1])
			if err != nil {
				return err
			}

			result := a.Move(ctx, src, dst, id, amount, modeFor(simulate))
			out := cmd.OutOrStdout()
			if result.Moved == 0 {
				fmt.Fprintf(out, "nothing moved: %s\n", result.Reason)
				return nil
			}
			fmt.Fprintf(out, "moved %dL of %s (stored %dL)%s\n", result.Moved, id, result.Stored, simulatedSuffix(simulate))
			if simulate {
				return nil
			}
			if err := a.Save(ctx, src); err != nil {
				return err
			}
			return a.Save(ctx, dst)
		}),
	}
	cmd.Flags().BoolVar(&simulate, "simulate", false, "report the result without changing either tank")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a tank snapshot to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			tank, err := a.Load(ctx, args[0])
			if err != nil {
				return err
			}
			record, err := tank.Ledger.ToSnapshot(snapshotCodec)
			if err != nil {
				return err
			}
			return encodeRecord(cmd.OutOrStdout(), record, format)
		}),
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format: json or yaml")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var (
		format   string
		simulate bool
	)
	cmd := &cobra.Command{
		Use:   "import NAME FILE",
		Short: "Replace a tank's contents with a snapshot (FILE - reads stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			in := cmd.InOrStdin()
			if args[1] != "-" {
				file, err := os.Open(args[1])
				if err != nil {
					return fmt.Errorf("open snapshot: %w", err)
				}
				defer file.Close()
				in = file
			}
			record, err := decodeRecord(in, format)
			if err != nil {
				return err
			}

			tank, err := a.Load(ctx, args[0])
			if errors.Is(err, sqlite.ErrNotFound) {
				tank, err = &app.Tank{Name: args[0], Ledger: fluid.NewTank(a.Config().CapacityPerSlot)}, nil
			}
			if err != nil {
				return err
			}
			restored, err := a.Import(ctx, tank, record)
			if err != nil {
				return fmt.Errorf("import %s: %w", tank.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d slots into %s%s\n", restored, tank.Name, simulatedSuffix(simulate))
			if simulate {
				return nil
			}
			return a.Save(ctx, tank)
		}),
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "input format: json or yaml")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "validate the snapshot without saving it")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored tanks",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			names, err := a.List(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}),
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored tank",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, a *app.App) error {
			if err := a.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	}
}

func simulatedSuffix(simulate bool) string {
	if simulate {
		return " (simulated)"
	}
	return ""
}
