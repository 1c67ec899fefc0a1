// Command rv32i is the simulator's command-line driver: it loads a
// flat binary image into memory, wires a hart to it, ticks until halt
// or an instruction budget is exhausted, and prints the termination
// summary.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bassosimone/rv32i/internal/config"
	"github.com/bassosimone/rv32i/pkg/hart"
	"github.com/bassosimone/rv32i/pkg/memory"
	"github.com/bassosimone/rv32i/pkg/regfile"
)

var (
	flagConfigPath string
	flagMemSize    uint32
	flagExecLimit  uint64
	flagMHartID    uint32
	flagShowInsns  bool
	flagShowRegs   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rv32i <image-path>",
		Short: "Run a flat RV32I binary image to completion",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("Missing file argument")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSimulation,
	}
	registerCommonFlags(rootCmd)

	dumpCmd := &cobra.Command{
		Use:   "dump <image-path>",
		Short: "Load an image and print the initial memory dump without executing it",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("Missing file argument")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDump,
	}
	dumpCmd.Flags().StringVar(&flagConfigPath, "config", "", "path to a TOML config file (defaults to the platform config path)")
	dumpCmd.Flags().Uint32Var(&flagMemSize, "mem-size", 0, "override the configured memory size in bytes")

	rootCmd.AddCommand(dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func registerCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagConfigPath, "config", "", "path to a TOML config file (defaults to the platform config path)")
	cmd.Flags().Uint32Var(&flagMemSize, "mem-size", 0, "override the configured memory size in bytes")
	cmd.Flags().Uint64Var(&flagExecLimit, "exec-limit", 0, "override the configured instruction budget (0 keeps the config value)")
	cmd.Flags().Uint32Var(&flagMHartID, "mhartid", 0, "hart identifier reported in diagnostics")
	cmd.Flags().BoolVar(&flagShowInsns, "trace", false, "disassemble and annotate every executed instruction")
	cmd.Flags().BoolVar(&flagShowRegs, "trace-registers", false, "dump the register file before every tick")
}

func loadConfig() (*config.Config, error) {
	if flagConfigPath != "" {
		return config.LoadFrom(flagConfigPath)
	}
	return config.Load()
}

// newMachine allocates memory and a register file per cfg and flag
// overrides, and loads path into memory. Image-open and image-too-big
// failures are reported but are not fatal: the driver proceeds with
// whatever memory state resulted, per the loader's documented
// disposition.
func newMachine(cfg *config.Config, path string) (*memory.Memory, *regfile.RegisterFile) {
	size := cfg.Memory.Size
	if flagMemSize != 0 {
		size = flagMemSize
	}

	mem := memory.New(size)
	if err := mem.LoadImage(path); err != nil {
		switch {
		case errors.Is(err, memory.ErrImageTooBig):
			fmt.Fprintln(os.Stderr, "Program too big")
		case errors.Is(err, memory.ErrImageOpen):
			fmt.Fprintln(os.Stderr, err.Error())
		}
	}

	regs := &regfile.RegisterFile{}
	regs.Set(2, mem.Size())

	return mem, regs
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mem, regs := newMachine(cfg, args[0])

	h := hart.New(mem, regs)
	h.MHartID = flagMHartID
	h.ShowInstructions = flagShowInsns || cfg.Trace.ShowInstructions
	h.ShowRegisters = flagShowRegs || cfg.Trace.ShowRegisters
	if h.ShowInstructions || h.ShowRegisters {
		h.Trace = os.Stdout
	}

	limit := cfg.Execution.ExecLimit
	if flagExecLimit != 0 {
		limit = flagExecLimit
	}

	for !h.IsHalted() {
		if limit != 0 && h.InsnCounter >= limit {
			break
		}
		h.Tick()
	}

	fmt.Printf("Execution terminated. Reason: %s\n", h.HaltReason)
	fmt.Printf("%d instructions executed\n", h.InsnCounter)
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mem, _ := newMachine(cfg, args[0])
	mem.Dump(os.Stdout)
	return nil
}
