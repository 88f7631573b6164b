package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/crossquery/crossquery/config"
	"github.com/crossquery/crossquery/query/ast"
	"github.com/crossquery/crossquery/query/introspect"
	"github.com/crossquery/crossquery/query/mongogen"
	"github.com/crossquery/crossquery/query/normalize"
	"github.com/crossquery/crossquery/query/sqlgen"
)

var (
	compileBackend string
	compileColumns string
)

var compileCmd = &cobra.Command{
	Use:   "compile <request.json>",
	Short: "Compile a query description and print the native query",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&compileBackend, "backend", "", "target backend (postgresql, mysql, sqlite, mongodb); defaults to configuration")
	compileCmd.Flags().StringVar(&compileColumns, "columns", "", "JSON file mapping tables to column lists, used instead of live catalog introspection")
}

// compileRequest is the on-disk description of one compilation.
type compileRequest struct {
	Resource   string           `json:"resource"`
	Schema     ast.Schema       `json:"schema,omitempty"`
	Operations []operationSpec  `json:"operations,omitempty"`
	Query      ast.QueryOptions `json:"query"`
}

type operationSpec struct {
	Kind                string `json:"kind"`
	From                string `json:"from"`
	LocalField          string `json:"localField"`
	ForeignField        string `json:"foreignField"`
	As                  string `json:"as"`
	Through             string `json:"through,omitempty"`
	ThroughLocalField   string `json:"throughLocalField,omitempty"`
	ThroughForeignField string `json:"throughForeignField,omitempty"`
	Inner               bool   `json:"inner,omitempty"`
}

func (s operationSpec) build() (ast.Operation, error) {
	switch ast.JoinKind(s.Kind) {
	case ast.KindJoin:
		if s.Inner {
			return ast.NewInnerJoin(s.From, s.LocalField, s.ForeignField, s.As)
		}
		return ast.NewJoin(s.From, s.LocalField, s.ForeignField, s.As)
	case ast.KindJoinMany:
		return ast.NewJoinMany(s.From, s.LocalField, s.ForeignField, s.As)
	case ast.KindJoinThrough:
		return ast.NewJoinThrough(s.From, s.Through, s.LocalField, s.ThroughLocalField, s.ThroughForeignField, s.ForeignField, s.As)
	case ast.KindJoinThroughMany:
		return ast.NewJoinThroughMany(s.From, s.Through, s.LocalField, s.ThroughLocalField, s.ThroughForeignField, s.ForeignField, s.As)
	}
	return ast.Operation{}, fmt.Errorf("unknown operation kind %q", s.Kind)
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	backend := compileBackend
	if backend == "" {
		backend = cfg.Backend
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var req compileRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("invalid request file: %w", err)
	}

	ops := make([]ast.Operation, 0, len(req.Operations))
	for _, spec := range req.Operations {
		op, err := spec.build()
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	norm := normalize.Config{
		Schema:     req.Schema,
		Exclusions: cfg.IdentifierExclusions,
	}

	if backend == "mongodb" {
		return printPipeline(req, ops, norm)
	}
	return printSQL(backend, req, ops, norm)
}

func printPipeline(req compileRequest, ops []ast.Operation, norm normalize.Config) error {
	pipeline, err := mongogen.Compile(ops, req.Query, norm)
	if err != nil {
		return err
	}

	color.Cyan("db.%s.aggregate", req.Resource)
	fmt.Println("[")
	for i, stage := range pipeline {
		encoded, err := bson.MarshalExtJSONIndent(stage, false, false, "  ", "  ")
		if err != nil {
			return err
		}
		suffix := ","
		if i == len(pipeline)-1 {
			suffix = ""
		}
		fmt.Printf("  %s%s\n", encoded, suffix)
	}
	fmt.Println("]")
	return nil
}

func printSQL(backend string, req compileRequest, ops []ast.Operation, norm normalize.Config) error {
	columns, err := loadColumns()
	if err != nil {
		return err
	}

	compiler := sqlgen.NewCompiler(sqlgen.NewDialect(backend), columns, norm)
	q, err := compiler.CompileSelect(context.Background(), req.Resource, ops, req.Query)
	if err != nil {
		return err
	}

	color.Cyan("-- %s", backend)
	fmt.Println(q.SQL)

	if len(q.Args) > 0 {
		data := pterm.TableData{{"#", "Argument"}}
		for i, arg := range q.Args {
			data = append(data, []string{fmt.Sprintf("%d", i+1), fmt.Sprintf("%v", arg)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	return nil
}

// loadColumns builds the column source for offline compilation from the
// --columns file.
func loadColumns() (introspect.Lister, error) {
	if compileColumns == "" {
		return nil, fmt.Errorf("--columns is required for relational backends (no live catalog in the CLI)")
	}
	raw, err := os.ReadFile(compileColumns)
	if err != nil {
		return nil, err
	}
	var static introspect.Static
	if err := json.Unmarshal(raw, &static); err != nil {
		return nil, fmt.Errorf("invalid columns file: %w", err)
	}
	return static, nil
}
