package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/comms-designer/core"
)

type rootOptions struct {
	output    string
	networkID string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "commnet",
		Short:         "Inspect communications network scenario files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "table", "json":
				return nil
			}
			return fmt.Errorf("unknown output format %q", opts.output)
		},
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "output format: table or json")
	root.PersistentFlags().StringVarP(&opts.networkID, "network", "n", "", "restrict output to one network id")

	root.AddCommand(
		newValidateCmd(opts),
		newLinksCmd(opts),
		newBudgetCmd(opts),
		newStatsCmd(opts),
		newLayoutCmd(opts),
		newResolveCmd(opts),
		newConvertCmd(),
	)
	return root
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Load a scenario and report invariant violations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(args[0])
			if err != nil {
				return err
			}
			var bad []string
			for _, n := range s.store.Networks() {
				if err := n.Config.Validate(); err != nil {
					bad = append(bad, fmt.Sprintf("%s: %v", n.ID, err))
				}
			}
			if !s.store.IsAcyclic() {
				bad = append(bad, "nested membership contains a cycle")
			}
			out := cmd.OutOrStdout()
			if len(bad) > 0 {
				for _, msg := range bad {
					fmt.Fprintln(out, msg)
				}
				return fmt.Errorf("%s: %d problem(s)", args[0], len(bad))
			}
			fmt.Fprintf(out, "%s: ok (%d networks, %d entities)\n", args[0], s.store.Len(), s.entities)
			return nil
		},
	}
}

func newLinksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "links FILE",
		Short: "Print the derived links of each network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(args[0])
			if err != nil {
				return err
			}
			networks, err := s.networks(opts.networkID)
			if err != nil {
				return err
			}

			links := make(map[string][]core.Link, len(networks))
			for _, n := range networks {
				links[n.ID] = core.ComputeLinks(n)
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), links)
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Network", "Type", "From", "To"})
			for _, n := range networks {
				for _, l := range links[n.ID] {
					t.AppendRow(table.Row{n.ID, n.Type, l.From, l.To})
				}
			}
			t.Render()
			return nil
		},
	}
}

func newBudgetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "budget FILE",
		Short: "Print the link budget and report of each network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(args[0])
			if err != nil {
				return err
			}
			networks, err := s.networks(opts.networkID)
			if err != nil {
				return err
			}

			reports := make([]core.NetworkReport, 0, len(networks))
			for _, n := range networks {
				reports = append(reports, core.BuildNetworkReport(n))
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), reports)
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Network", "Name", "Links", "Bandwidth (Mbps)", "EIRP (dBW)", "FSPL (dB)", "Rx (dBm)", "Margin (dB)", "Status"})
			for _, r := range reports {
				b := r.Budget
				t.AppendRow(table.Row{
					r.NetworkID, r.Name, r.Links, r.TotalBandwidthMbps,
					fmt.Sprintf("%.1f", b.EIRPdBW),
					fmt.Sprintf("%.1f", b.FSPLdB),
					fmt.Sprintf("%.1f", b.RxPowerDBm),
					fmt.Sprintf("%.1f", b.MarginDB),
					b.MarginLabel,
				})
			}
			t.Render()
			return nil
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats FILE",
		Short: "Print aggregate link and membership figures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(args[0])
			if err != nil {
				return err
			}
			networks, err := s.networks(opts.networkID)
			if err != nil {
				return err
			}
			stats := core.ComputeStats(networks)
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), stats)
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendRows([]table.Row{
				{"Networks", stats.Networks},
				{"Links", stats.TotalLinks},
				{"Bandwidth (Mbps)", stats.TotalBandwidthMbps},
				{"Unique entities", stats.UniqueEntities},
			})
			t.Render()
			return nil
		},
	}
}

func newLayoutCmd(opts *rootOptions) *cobra.Command {
	params := core.DefaultLayoutParams()
	var zoom bool
	cmd := &cobra.Command{
		Use:   "layout FILE",
		Short: "Run the force-directed layout of one network to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.networkID == "" {
				return fmt.Errorf("layout needs --network")
			}
			if params.MaxTicks < 0 {
				return fmt.Errorf("--ticks must not be negative")
			}
			s, err := loadSession(args[0])
			if err != nil {
				return err
			}
			n, err := s.store.Network(opts.networkID)
			if err != nil {
				return err
			}

			pos := runLayout(n, params)
			if zoom {
				pos = core.ZoomToFit(pos, params)
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), pos)
			}

			ids := make([]string, 0, len(pos))
			for id := range pos {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Member", "X", "Y"})
			for _, id := range ids {
				t.AppendRow(table.Row{id, fmt.Sprintf("%.1f", pos[id].X), fmt.Sprintf("%.1f", pos[id].Y)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&params.MaxTicks, "ticks", params.MaxTicks, "number of layout ticks")
	cmd.Flags().Float64Var(&params.Width, "width", params.Width, "canvas width")
	cmd.Flags().Float64Var(&params.Height, "height", params.Height, "canvas height")
	cmd.Flags().BoolVar(&zoom, "zoom", false, "zoom the result to fit the canvas")
	return cmd
}

// runLayout places n and ticks the layout until its budget is spent.
func runLayout(n *core.Network, p core.LayoutParams) core.Positions {
	st := core.LayoutState{
		Members:   n.MemberIDs(),
		Links:     core.ComputeLinks(n),
		Positions: core.InitialPlacement(n, nil, p),
		Params:    p,
	}
	for !st.Done() {
		st = core.Tick(st)
	}
	return st.Positions
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve FILE MEMBER...",
		Short: "Resolve member ids to a display name, kind and team",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(args[0])
			if err != nil {
				return err
			}
			resolved := make(map[string]core.Resolved, len(args)-1)
			for _, id := range args[1:] {
				resolved[id] = core.Resolve(s.store, s.dir, id)
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), resolved)
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Name", "Kind", "Team"})
			for _, id := range args[1:] {
				r := resolved[id]
				t.AppendRow(table.Row{id, r.Name, r.Kind, r.Team})
			}
			t.Render()
			return nil
		},
	}
}

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert SRC DST",
		Short: "Rewrite a scenario, choosing JSON or YAML by file extension",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(args[0])
			if err != nil {
				return err
			}
			if err := s.save(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d networks to %s\n", s.store.Len(), args[1])
			return nil
		},
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
