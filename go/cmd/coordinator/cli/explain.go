/*
Copyright 2026 The MPPDB Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cli

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/encoding/protojson"
	"sigs.k8s.io/yaml"

	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/catalog"
	"github.com/mppdb/coordinator/go/vt/planner"
	"github.com/mppdb/coordinator/go/vt/planner/wire"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

var explainOptions = struct {
	Catalog            string
	Statement          string
	Format             string
	Verbose            bool
	User               string
	Cell               string
	RPCPort            int
	Host               string
	MaxScanRangeLength int64
}{
	Format:  "text",
	RPCPort: 9020,
}

// Explain compiles a statement against a catalog file and prints the plan.
var Explain = &cobra.Command{
	Use:   "explain --catalog <file> --statement <file>",
	Short: "Compile an analyzed statement and print its plan.",
	Long: "Compile an analyzed statement and print its plan.\n\n" +
		"Both files are YAML or JSON. --format text prints the fragment view, " +
		"tree prints the node tree and json prints the wire plan.",
	Example: `coordinator explain --catalog catalog.yaml --statement select_orders.yaml --cell zone1 --verbose`,
	Args:    cobra.NoArgs,
	RunE:    commandExplain,
}

func init() {
	Explain.Flags().StringVar(&explainOptions.Catalog, "catalog", "", "catalog snapshot file")
	Explain.Flags().StringVar(&explainOptions.Statement, "statement", "", "analyzed statement file")
	Explain.Flags().StringVar(&explainOptions.Format, "format", explainOptions.Format, "output format: text, tree or json")
	Explain.Flags().BoolVar(&explainOptions.Verbose, "verbose", false, "include tuple layouts in text output")
	Explain.Flags().StringVar(&explainOptions.User, "user", "", "session user recorded in the plan")
	Explain.Flags().StringVar(&explainOptions.Cell, "cell", "", "coordinator locality used to order scan hosts")
	Explain.Flags().IntVar(&explainOptions.RPCPort, "rpc-port", explainOptions.RPCPort, "coordinator port recorded in the plan")
	Explain.Flags().StringVar(&explainOptions.Host, "host", "", "coordinator address recorded in the plan; resolved from the hostname when empty")
	Explain.Flags().Int64Var(&explainOptions.MaxScanRangeLength, "max-scan-range-length", 0, "split tablets larger than this many bytes")
	Explain.MarkFlagRequired("catalog")
	Explain.MarkFlagRequired("statement")
}

func commandExplain(cmd *cobra.Command, args []string) error {
	switch explainOptions.Format {
	case "text", "tree", "json":
	default:
		return vterrors.Errorf(codes.InvalidArgument, "unknown --format %q", explainOptions.Format)
	}

	data, err := os.ReadFile(explainOptions.Catalog)
	if err != nil {
		return err
	}
	snapshot, err := catalog.LoadSnapshot(data)
	if err != nil {
		return err
	}
	stmt, err := loadStatement(explainOptions.Statement)
	if err != nil {
		return err
	}

	pctx := &planner.PlanContext{
		Session:            planner.Session{User: explainOptions.User},
		RPCPort:            explainOptions.RPCPort,
		Cell:               explainOptions.Cell,
		MaxScanRangeLength: explainOptions.MaxScanRangeLength,
	}
	if explainOptions.Host != "" {
		pctx.Resolver = planner.StaticHostResolver(explainOptions.Host)
	} else {
		pctx.Resolver = planner.NetHostResolver{Resolver: net.DefaultResolver}
	}

	plan, err := planner.NewCompiler(snapshot, nil, nil).Compile(cmd.Context(), pctx, stmt)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch explainOptions.Format {
	case "tree":
		fmt.Fprint(out, plan.Tree())
	case "json":
		w, err := plan.Serialize()
		if err != nil {
			return err
		}
		st, err := wire.EncodePlan(w)
		if err != nil {
			return err
		}
		b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
	default:
		level := planner.ExplainNormal
		if explainOptions.Verbose {
			level = planner.ExplainVerbose
		}
		fmt.Fprint(out, plan.Explain(level))
	}
	return nil
}

func loadStatement(path string) (*analysis.Statement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stmt analysis.Statement
	if err := yaml.UnmarshalStrict(data, &stmt); err != nil {
		return nil, vterrors.Errorf(codes.InvalidArgument, "cannot parse statement %s: %v", path, err)
	}
	return &stmt, nil
}
