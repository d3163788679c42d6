package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"sort"

	"github.com/PaesslerAG/jsonpath"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/wevest/wevest-devstack/deployer/state"
)

func useColor(w io.Writer, disabled bool) bool {
	if disabled {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func inspectAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one record path or URL")
	}
	loader := state.NewLoader(afero.NewOsFs(), http.DefaultClient)
	st, err := loader.Load(ctx.Context, ctx.Args().First())
	if err != nil {
		return err
	}
	if q := ctx.String(QueryFlag.Name); q != "" {
		return printQuery(ctx.App.Writer, st, q)
	}
	return printSummary(ctx.App.Writer, st, useColor(ctx.App.Writer, ctx.Bool(NoColorFlag.Name)))
}

// queryRecord evaluates a JSONPath expression against the JSON form of the record.
func queryRecord(st *state.Deployment, query string) (any, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	v, err := jsonpath.Get(query, doc)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	return v, nil
}

func printQuery(w io.Writer, st *state.Deployment, query string) error {
	v, err := queryRecord(st, query)
	if err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func phaseColor(st *state.Deployment) *color.Color {
	switch {
	case st.Ready():
		return color.New(color.FgGreen, color.Bold)
	case st.Phase == state.Failed:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow)
	}
}

// addressRows lists the non-zero protocol addresses by their record key.
func addressRows(a state.Addresses) [][]string {
	var rows [][]string
	v, t := reflect.ValueOf(a), reflect.TypeOf(a)
	for i := 0; i < t.NumField(); i++ {
		addr := v.Field(i).Interface()
		if s, ok := addr.(fmt.Stringer); ok && !v.Field(i).IsZero() {
			rows = append(rows, []string{t.Field(i).Tag.Get("json"), s.String()})
		}
	}
	return rows
}

func printSummary(w io.Writer, st *state.Deployment, colored bool) error {
	c := phaseColor(st)
	if !colored {
		c.DisableColor()
	}
	fmt.Fprintf(w, "market %q on chain %d, run %s\n", st.MarketID, st.ChainID, st.RunID)
	fmt.Fprintf(w, "phase: %s\n", c.Sprint(st.Phase))
	if st.Error != "" {
		fmt.Fprintf(w, "error: %s\n", st.Error)
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Contract", "Address"})
	table.SetAutoFormatHeaders(false)
	names := make([]string, 0, len(st.Libraries))
	for name := range st.Libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		table.Append([]string{name, st.Libraries[name].Hex()})
	}
	table.AppendBulk(addressRows(st.Addresses))
	table.Render()

	if len(st.Reserves) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	reserves := tablewriter.NewWriter(w)
	reserves.SetHeader([]string{"Symbol", "Asset", "Decimals", "WvToken", "DebtToken", "Vault", "Borrowable"})
	reserves.SetAutoFormatHeaders(false)
	for _, r := range st.Reserves {
		reserves.Append([]string{
			r.Symbol,
			r.Asset.Hex(),
			fmt.Sprint(r.Decimals),
			r.WvToken.Hex(),
			r.DebtToken.Hex(),
			r.Vault.Hex(),
			fmt.Sprint(r.Borrowable),
		})
	}
	reserves.Render()
	return nil
}
