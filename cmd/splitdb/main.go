// Command splitdb splits one large JSON array knowledge source into
// fixed-size part_NNN.json chunks. One-time offline data preparation.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"goutgle/internal/knowledge"
)

func main() {
	_ = godotenv.Load()

	var src, outDir string
	var chunk int
	flag.StringVar(&src, "in", "data/database.json", "Source JSON array file")
	flag.StringVar(&outDir, "out", "data_split", "Output directory")
	flag.IntVar(&chunk, "chunk", knowledge.DefaultChunkSize, "Records per output file")
	flag.Parse()

	written, err := knowledge.SplitFile(src, outDir, chunk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Fichiers JSON découpés enregistrés dans %s (%d fichiers)\n", outDir, written)
}
