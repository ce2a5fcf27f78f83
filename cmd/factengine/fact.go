package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/observable"
	"github.com/cuemby/factengine/pkg/query"
	"github.com/spf13/cobra"
)

var factCmd = &cobra.Command{
	Use:   "fact",
	Short: "Save, load, and query facts",
}

func init() {
	factCmd.AddCommand(factSaveCmd)
	factCmd.AddCommand(factLoadCmd)
	factCmd.AddCommand(factQueryCmd)
	factCmd.AddCommand(factWatchCmd)
}

var factSaveCmd = &cobra.Command{
	Use:   "save <json-file>",
	Short: "Save one or more envelopes from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		envelopes, err := decodeEnvelopes(data)
		if err != nil {
			return err
		}

		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		saved, err := eng.Save(context.Background(), envelopes, fact.Reference{})
		if err != nil {
			return fmt.Errorf("save rejected: %w", err)
		}

		for _, env := range saved {
			ref, err := fact.ReferenceOf(env.Fact)
			if err != nil {
				return err
			}
			fmt.Println(ref.String())
		}
		return nil
	},
}

// decodeEnvelopes accepts either a JSON array of envelopes or a
// single envelope object.
func decodeEnvelopes(data []byte) ([]fact.Envelope, error) {
	var envelopes []fact.Envelope
	if err := json.Unmarshal(data, &envelopes); err == nil {
		return envelopes, nil
	}
	var one fact.Envelope
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("failed to parse envelope JSON: %w", err)
	}
	return []fact.Envelope{one}, nil
}

var factLoadCmd = &cobra.Command{
	Use:   "load <type> <hash>",
	Short: "Load a fact and its ancestor closure by reference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := fact.Reference{Type: args[0], Hash: args[1]}

		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		envelopes, err := eng.Load(context.Background(), []fact.Reference{ref})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(envelopes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var factQueryCmd = &cobra.Command{
	Use:   "query <step-query-file> <type:hash>",
	Short: "Run a legacy step query from a starting reference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		var steps query.StepQuery
		if err := json.Unmarshal(data, &steps); err != nil {
			return fmt.Errorf("failed to parse step query: %w", err)
		}

		start, err := fact.ParseReference(args[1])
		if err != nil {
			return err
		}

		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		results, err := eng.Query(context.Background(), start, steps)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Println(r.String())
		}
		return nil
	},
}

var factWatchCmd = &cobra.Command{
	Use:   "watch <specification-file> [label=type:hash ...]",
	Short: "Watch a specification, printing add/remove events until interrupted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		var spec query.Specification
		if err := json.Unmarshal(data, &spec); err != nil {
			return fmt.Errorf("failed to parse specification: %w", err)
		}

		given, err := parseGivenTuple(args[1:])
		if err != nil {
			return err
		}

		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		added := func(tuple query.Tuple) observable.Handle {
			fmt.Printf("+ %v\n", tuple)
			return tuple
		}
		removed := func(handle observable.Handle) {
			fmt.Printf("- %v\n", handle)
		}

		obs, err := eng.Watch(ctx, spec, given, added, removed)
		if err != nil {
			return err
		}
		defer obs.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		fmt.Println("watching, press Ctrl+C to stop...")
		<-sigCh
		fmt.Println("stopped")
		return nil
	},
}

// parseGivenTuple parses "label=type:hash" pairs into a query.Tuple.
func parseGivenTuple(pairs []string) (query.Tuple, error) {
	given := make(query.Tuple, len(pairs))
	for _, p := range pairs {
		eq := strings.IndexByte(p, '=')
		if eq < 0 {
			return nil, fmt.Errorf("invalid given binding %q, want label=type:hash", p)
		}
		label, refStr := p[:eq], p[eq+1:]
		ref, err := fact.ParseReference(refStr)
		if err != nil {
			return nil, err
		}
		given[query.Label(label)] = ref
	}
	return given, nil
}
