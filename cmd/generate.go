package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethbind/ethbind/internal/config"
	"github.com/ethbind/ethbind/internal/logger"
	"github.com/ethbind/ethbind/pkg/bindings"
	"github.com/ethbind/ethbind/pkg/contractAbi"
	"github.com/spf13/cobra"
)

var (
	generateAbiPath  string
	generateOutPath  string
	generatePackage  string
	generateContract string
	generateRenames  []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a typed Go binding from an ABI document",
	Long: `Generate a typed Go binding from a contract ABI JSON document.

Overloaded functions get numeric suffixes in declaration order; use
--rename "transfer(address,uint256,bytes)=TransferWithData" to pin a
specific Go name to a canonical signature instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewConfig()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if generateAbiPath == "" {
			return fmt.Errorf("--abi is required")
		}
		if generateContract == "" {
			return fmt.Errorf("--name is required")
		}

		doc, err := os.ReadFile(generateAbiPath)
		if err != nil {
			return fmt.Errorf("failed to read ABI document: %w", err)
		}

		descriptor, err := contractAbi.Parse(doc)
		if err != nil {
			return fmt.Errorf("failed to parse ABI document: %w", err)
		}

		renames, err := parseRenames(generateRenames)
		if err != nil {
			return err
		}

		model, err := bindings.Resolve(descriptor, string(doc), &bindings.ResolveOptions{
			PackageName:  generatePackage,
			ContractName: generateContract,
			Renames:      renames,
		})
		if err != nil {
			return fmt.Errorf("failed to resolve binding model: %w", err)
		}

		source, err := bindings.Generate(model)
		if err != nil {
			return fmt.Errorf("failed to generate binding: %w", err)
		}

		if generateOutPath == "" {
			_, err = os.Stdout.Write(source)
			return err
		}
		if err := os.WriteFile(generateOutPath, source, 0o644); err != nil {
			return fmt.Errorf("failed to write binding: %w", err)
		}
		l.Sugar().Infow("Wrote binding",
			"contract", model.ContractName,
			"functions", len(model.Methods),
			"events", len(model.Events),
			"out", generateOutPath,
		)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateAbiPath, "abi", "", "Path to the ABI JSON document (required)")
	generateCmd.Flags().StringVar(&generateOutPath, "out", "", "Output file; stdout when omitted")
	generateCmd.Flags().StringVar(&generatePackage, "package", "", "Package name of the generated file")
	generateCmd.Flags().StringVar(&generateContract, "name", "", "Contract name for the wrapper type (required)")
	generateCmd.Flags().StringArrayVar(&generateRenames, "rename", nil, `Pin a Go name to a signature: "transfer(address,uint256)=TransferSimple"`)
}

func parseRenames(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	renames := make(map[string]string, len(entries))
	for _, entry := range entries {
		eq := strings.LastIndex(entry, "=")
		if eq <= 0 || eq == len(entry)-1 {
			return nil, fmt.Errorf("invalid --rename %q, want signature=GoName", entry)
		}
		signature, goName := entry[:eq], entry[eq+1:]
		if _, exists := renames[signature]; exists {
			return nil, fmt.Errorf("duplicate --rename for %s", signature)
		}
		renames[signature] = goName
	}
	return renames, nil
}
