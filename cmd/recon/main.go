// recon reconstructs a function from its first or second derivative.
//
//	recon reconstruct "2*x" --x0 1 --y0 3
//	recon reconstruct "6*x" --mode second --v0 0 --format csv
//	recon integrate "x*exp(x)"
//	recon diff "sin(x)^2" --order 2
//	recon serve --config derivrecon.yaml
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/njchilds90/derivrecon"
	"github.com/njchilds90/derivrecon/internal/config"
	"github.com/njchilds90/derivrecon/internal/server"
)

var version = "dev"

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		newPrinter(os.Stderr).failure(err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "recon",
		Short:         "Reconstruct f from f' or f'' and an initial condition",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config (default derivrecon.yaml if present)")
	loadConfig := func() (config.Config, error) { return config.Load(configPath) }

	root.AddCommand(
		newReconstructCmd(loadConfig),
		newIntegrateCmd(),
		newDiffCmd(),
		newServeCmd(loadConfig),
		newVersionCmd(),
	)
	return root
}

func newReconstructCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	var (
		mode, variable, format string
		x0, y0, v0, xmin, xmax float64
		samples                int
	)
	cmd := &cobra.Command{
		Use:   "reconstruct <derivative>",
		Short: "Recover f from f' (--mode first) or f'' (--mode second)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := derivrecon.ParseMode(mode)
			if err != nil {
				return err
			}
			if variable == "" {
				variable = cfg.Recon.Variable
			}
			if !cmd.Flags().Changed("xmin") {
				xmin = cfg.Recon.XMin
			}
			if !cmd.Flags().Changed("xmax") {
				xmax = cfg.Recon.XMax
			}
			if !cmd.Flags().Changed("samples") {
				samples = cfg.Recon.Samples
			}
			if n := len(args[0]); n > cfg.Recon.MaxExprLen {
				return &derivrecon.ParseError{Input: args[0], Reason: fmt.Sprintf("expression longer than %d characters", cfg.Recon.MaxExprLen)}
			}

			req := derivrecon.Request{Derivative: args[0], Mode: m, X0: x0, Y0: y0, Var: variable}
			if cmd.Flags().Changed("v0") {
				req.V0 = &v0
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Recon.Timeout)
			defer cancel()
			res, err := derivrecon.ReconstructContext(ctx, req)
			if err != nil {
				return err
			}
			series, err := res.Sample(xmin, xmax, samples)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return writeJSON(out, res, series)
			case "csv":
				return writeCSV(out, series)
			}
			newPrinter(out).result(res, xmin, xmax)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&mode, "mode", "m", "first", "which derivative is given: first or second")
	f.Float64Var(&x0, "x0", 0, "point of the initial condition")
	f.Float64Var(&y0, "y0", 0, "f(x0)")
	f.Float64Var(&v0, "v0", 0, "f'(x0), required with --mode second")
	f.StringVar(&variable, "var", "", "independent variable (default from config, x)")
	f.Float64Var(&xmin, "xmin", -5, "left end of the window")
	f.Float64Var(&xmax, "xmax", 5, "right end of the window")
	f.IntVarP(&samples, "samples", "n", 800, "sample points across the window")
	f.StringVarP(&format, "format", "o", "text", "output format: text, json or csv")
	return cmd
}

func newIntegrateCmd() *cobra.Command {
	var (
		variable string
		twice    bool
	)
	cmd := &cobra.Command{
		Use:   "integrate <expr>",
		Short: "Antiderivative with integration constants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := derivrecon.NewScope(variable)
			g, err := derivrecon.Parse(args[0], scope)
			if err != nil {
				return err
			}
			n := 1
			if twice {
				n = 2
			}
			antis, err := derivrecon.IntegrateN(g, n, scope)
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			label := "F(" + scope.Var() + ")  ="
			for i, a := range antis {
				if i == 1 {
					label = "FF(" + scope.Var() + ") ="
				}
				p.line(label, a.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&variable, "var", derivrecon.DefaultVariable, "integration variable")
	cmd.Flags().BoolVar(&twice, "twice", false, "integrate twice")
	return cmd
}

func newDiffCmd() *cobra.Command {
	var (
		variable string
		order    int
	)
	cmd := &cobra.Command{
		Use:   "diff <expr>",
		Short: "Derivative of an expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if order < 1 {
				return &derivrecon.RequestError{Field: "order", Reason: "must be at least 1"}
			}
			e, err := derivrecon.ParseIn(args[0], variable)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), derivrecon.DiffN(e, variable, order))
			return nil
		},
	}
	cmd.Flags().StringVar(&variable, "var", derivrecon.DefaultVariable, "differentiation variable")
	cmd.Flags().IntVar(&order, "order", 1, "order of the derivative")
	return cmd
}

func newServeCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Serve(ctx, cfg, version, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "recon", version)
		},
	}
}
