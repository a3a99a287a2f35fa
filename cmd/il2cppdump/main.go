// Command il2cppdump is a thin CLI wrapper around il2cppcore.Dump. Flag
// parsing and file I/O are deliberately trivial glue; the only logic that
// matters lives in the library package this command imports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/il2cppcore/il2cppcore"
	"github.com/il2cppcore/il2cppcore/vmem"
)

func writeArtifacts(dir string, artifacts il2cppcore.Artifacts) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, content := range artifacts {
		path := dir + string(os.PathSeparator) + name
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func dump(cmd *cobra.Command, args []string) {
	binaryPath, metadataPath, outDir := args[0], args[1], args[2]

	// The game binary can run into the hundreds of megabytes (stripped
	// Unity players); mmap it read-only instead of copying it into the
	// heap. global-metadata.dat is small enough that a plain read is fine.
	binaryFile, err := vmem.Open(binaryPath)
	if err != nil {
		fmt.Println("reading binary:", err)
		os.Exit(1)
	}
	defer binaryFile.Close()
	binaryBytes := binaryFile.Bytes()

	metadataBytes, err := os.ReadFile(metadataPath)
	if err != nil {
		fmt.Println("reading metadata:", err)
		os.Exit(1)
	}

	cfg := il2cppcore.DefaultConfig()

	noScript, _ := cmd.Flags().GetBool("no-script")
	cfg.GenerateScript = !noScript

	artifacts, err := il2cppcore.Dump(binaryBytes, metadataBytes, cfg)
	if err != nil {
		fmt.Println("dump failed:", err)
		os.Exit(1)
	}

	if err := writeArtifacts(outDir, artifacts); err != nil {
		fmt.Println("writing artifacts:", err)
		os.Exit(1)
	}
}

func main() {
	var noScript bool

	rootCmd := &cobra.Command{
		Use:   "il2cppdump",
		Short: "Reconstructs C#-like type and method information from an IL2CPP build",
		Long:  "il2cppdump reads a game binary and its global-metadata.dat and writes dump.cs, il2cpp.h, script.json, and stringliteral.json.",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("il2cppdump 0.1.0")
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <binary> <global-metadata.dat> <out-dir>",
		Short: "Dump an IL2CPP binary's types, methods, and strings",
		Args:  cobra.ExactArgs(3),
		Run:   dump,
	}
	dumpCmd.Flags().BoolVar(&noScript, "no-script", false, "skip generating script.json")

	rootCmd.AddCommand(versionCmd, dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
