// Command gendata generates a synthetic gold corpus of noised entity
// strings for extraction evaluation.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chanmujie/ner-using-llms/internal/generator"

	"go.uber.org/zap"
)

func main() {
	var (
		entityTypes = flag.String("types", "name,phone_number,email,organisation,salutation", "comma-separated entity types (name, phone_number, email, organisation, salutation, relationship, date, country, airport_code, plate, id, random_entity)")
		noiseBatch  = flag.String("batch", "1", "noise batch: 1 clean, 2 concatenated, 3 heavy")
		numSamples  = flag.Int("n", 50, "number of instances to generate")
		seed        = flag.Int64("seed", 0, "random seed (0 = random)")
		outPath     = flag.String("out", "gold.jsonl", "output JSONL path")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	types := strings.Split(*entityTypes, ",")
	for i := range types {
		types[i] = strings.TrimSpace(types[i])
	}

	g := generator.New(*seed, logger)
	if err := g.Generate(generator.Options{
		EntityTypes: types,
		NoiseBatch:  *noiseBatch,
		NumSamples:  *numSamples,
	}, *outPath); err != nil {
		logger.Error("Generation failed", zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\n", *outPath)
}
