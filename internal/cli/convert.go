package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/n50osm/n50osm/internal/classify"
	"github.com/n50osm/n50osm/internal/config"
	"github.com/n50osm/n50osm/internal/pipeline"
	"github.com/n50osm/n50osm/internal/transport"
)

var convertCmd = &cobra.Command{
	Use:   "convert <municipality> <category>",
	Short: "Convert one municipality's N50 data to OSM XML",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().Bool("debug", false, "Echo extras as uppercase debug tags")
	convertCmd.Flags().Bool("tag", false, "Emit raw N50_* attribute tags instead of classifying")
	convertCmd.Flags().Bool("geojson", false, "Skip topology stages and write the raw features as GeoJSON instead of OSM XML")
	convertCmd.Flags().Bool("stream", false, "Reverse stream direction using sampled elevation")
	convertCmd.Flags().Bool("ele", false, "Run the elevation pass")
	convertCmd.Flags().Bool("noname", false, "Skip SSR place-name enrichment")
	convertCmd.Flags().Bool("nonve", false, "Skip NVE lake enrichment")
	convertCmd.Flags().Bool("nonode", false, "Skip stream/boundary intersection resolution")
	convertCmd.Flags().String("output", "", "Output file path (default n50_<id>_<name>_<category>.<osm|geojson>)")

	for _, name := range []string{"debug", "tag", "geojson", "stream", "ele", "noname", "nonve", "nonode", "output"} {
		if err := viper.BindPFlag("convert."+name, convertCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	categoryQuery := args[1]
	category, ok := config.MatchCategory(categoryQuery)
	if !ok {
		return fmt.Errorf("unknown category %q: must prefix-match one of %v", categoryQuery, config.Categories)
	}

	opts := pipeline.Options{
		Debug:      viper.GetBool("convert.debug"),
		TagMode:    viper.GetBool("convert.tag"),
		RawGeoJSON: viper.GetBool("convert.geojson"),
		Stream:     viper.GetBool("convert.stream"),
		Elevation:  viper.GetBool("convert.ele"),
		NoName:     viper.GetBool("convert.noname"),
		NoNVE:      viper.GetBool("convert.nonve"),
		NoNode:     viper.GetBool("convert.nonode"),
	}

	ctx := context.Background()
	client := transport.New(cfg.Transport, logger)

	municipality, err := client.LookupMunicipality(ctx, args[0])
	if err != nil {
		return err
	}
	logger.Info("resolved municipality", "code", municipality.Code, "name", municipality.Name)

	gmlReader, err := fetchGML(ctx, client, municipality, category)
	if err != nil {
		return fmt.Errorf("fetching N50 data: %w", err)
	}

	buildingsCSV, err := client.FetchBuildingTypesCSV(ctx)
	var buildings classify.BuildingTypeTable
	if err == nil {
		buildings, err = classify.ParseBuildingTypesCSV(string(buildingsCSV))
		if err != nil {
			logger.Warn("falling back to embedded building-type table", "error", err)
			buildings = nil
		}
	} else {
		logger.Warn("falling back to embedded building-type table", "error", err)
	}

	p := pipeline.New(client, buildings, category, logger)
	result, err := p.Run(ctx, gmlReader, municipality.Code, opts)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	outPath := viper.GetString("convert.output")
	if outPath == "" {
		outPath = defaultOutputPath(municipality, category, opts.RawGeoJSON)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if opts.RawGeoJSON {
		err = pipeline.EmitGeoJSON(result, f)
	} else {
		err = pipeline.Emit(result, opts.Debug, f)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	logger.Info("wrote output", "path", outPath, "features", len(result.Features))
	return nil
}

// defaultOutputPath builds the default output filename, per spec.md §6
// "Output file": `n50_{id}_{name}_{category}.{osm|geojson}`.
func defaultOutputPath(m transport.Municipality, category string, geojson bool) string {
	ext := "osm"
	if geojson {
		ext = "geojson"
	}
	return fmt.Sprintf("n50_%s_%s_%s.%s", m.Code, transport.NormalizedMunicipalityName(m.Name), category, ext)
}

// fetchGML downloads the N50 zip archive for the municipality and returns
// a reader over the first member whose name contains the category, per
// spec.md §6 "Data retrieval".
func fetchGML(ctx context.Context, client *transport.Client, m transport.Municipality, category string) (*bytes.Reader, error) {
	zipBytes, err := client.FetchN50Zip(ctx, m.Code, m.Name)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("opening N50 archive: %w", err)
	}
	for _, file := range zr.File {
		if !strings.Contains(file.Name, category) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(buf.Bytes()), nil
	}
	return nil, fmt.Errorf("N50 archive contained no member for %s", category)
}
