// sqlgen generates gomodel structs from SQL CREATE TABLE statements.
//
// Usage:
//
//	sqlgen -schema schema.sql [-out models_gen.go] [-pkg models] [-acronyms]
//	sqlgen -schema schema.sql -register=false -timestamps=false
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/CaliLuke/go-modelservice/sqlgen"
)

const version = "0.1.0"

func main() {
	defaults := sqlgen.DefaultConfig()

	schemaFile := flag.String("schema", "", "Path to SQL schema file (required)")
	outFile := flag.String("out", "", "Output Go file (default: stdout)")
	pkg := flag.String("pkg", defaults.PackageName, "Package name for generated code")
	module := flag.String("module", defaults.ModulePath, "Import path of the gomodel package")
	acronyms := flag.Bool("acronyms", defaults.UseAcronyms, "Apply Go naming conventions for acronyms (ID, URL, etc.)")
	timestamps := flag.Bool("timestamps", defaults.Timestamps, "Tag created_at, updated_at and deleted_at columns")
	register := flag.Bool("register", defaults.Register, "Emit an init function registering the models")
	enums := flag.Bool("enums", defaults.Enums, "Generate string constants from CHECK (col IN (...)) constraints")
	versionStr := flag.String("schema-version", "", "Schema version string (included in generated header)")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("sqlgen %s\n", version)
		os.Exit(0)
	}

	if *schemaFile == "" {
		fmt.Fprintln(os.Stderr, "error: -schema flag is required")
		flag.Usage()
		os.Exit(1)
	}

	schema, err := sqlgen.ParseSchemaFile(*schemaFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var w *os.File
	if *outFile != "" {
		w, err = os.Create(*outFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating output: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = w.Close() }()
	} else {
		w = os.Stdout
	}

	cfg := sqlgen.RenderConfig{
		PackageName:   *pkg,
		ModulePath:    *module,
		UseAcronyms:   *acronyms,
		Timestamps:    *timestamps,
		Register:      *register,
		SchemaVersion: *versionStr,
		Enums:         *enums,
	}
	if err := sqlgen.Render(w, schema, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error rendering: %v\n", err)
		os.Exit(1)
	}
}
