package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"dicom2mesh/pkg/batch"
	"dicom2mesh/pkg/config"
	"dicom2mesh/pkg/pipeline"
	"dicom2mesh/pkg/skull"
	"dicom2mesh/pkg/tissue"
)

func main() {
	// Parse command line arguments
	input := flag.String("input", "", "DICOM study directory, batch root, or .mha/.mhd/.dcm file")
	output := flag.String("output", "output.stl", "Output STL filename (single run) or directory (batch)")
	tissueName := flag.String("tissue", "", fmt.Sprintf("Tissue type to threshold for %v", tissue.Names()))
	isovalue := flag.Float64("isovalue", pipeline.DefaultIsovalue, "Surface extraction level (ignored when -tissue is set)")
	preset := flag.String("preset", "", "Parameter preset: default or skull-tuned")
	batchMode := flag.Bool("batch", false, "Treat input as a directory of study subdirectories")
	twoStage := flag.Bool("two-stage", false, "Batch convert, then isolate the target object from each mesh")
	keepIntermediate := flag.Bool("keep-intermediate", false, "Keep the full meshes of a two-stage run")
	dedup := flag.Bool("dedup", false, "Skip repeat studies of the same patient in batch mode")
	minSlices := flag.Int("min-slices", batch.DefaultMinSlices, "Minimum slice count for a batch study")
	outPrefix := flag.String("out-prefix", "", "Prefix for batch output file names")
	smooth := flag.Int("smooth", pipeline.DefaultSmoothIterations, "Mesh smoothing iterations")
	reduce := flag.Float64("reduce", pipeline.DefaultReduction, "Decimation target as a fraction of triangles to remove [0,1)")
	rotate := flag.Bool("rotate", false, "Rotate the finished mesh")
	rotAxis := flag.Int("rotaxis", pipeline.DefaultRotationAxis, "Rotation axis: 0=x 1=y 2=z")
	rotAngle := flag.Float64("rotangle", pipeline.DefaultRotationAngle, "Rotation angle in degrees")
	shrink := flag.Bool("shrink", true, "Shrink oversized volumes before filtering")
	shrinkMax := flag.Int("shrink-max", pipeline.DefaultShrinkMaxDim, "Maximum volume dimension after shrinking")
	anisotropic := flag.Bool("anisotropic", false, "Apply anisotropic diffusion smoothing to the volume")
	median := flag.Bool("median", false, "Force a median filter pass after thresholding")
	pad := flag.Int("pad", 5, "Voxels of padding around the volume so surfaces close")
	ctOnly := flag.Bool("ct", false, "Reject inputs whose modality is not CT")
	configPath := flag.String("config", "", "YAML run configuration file")
	previewDir := flag.String("preview-dir", "", "Directory for JPEG slice previews of the preprocessed volume")
	verbose := flag.Bool("v", false, "Debug-level logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	fileCfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		fileCfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load configuration")
		}
	}
	if *verbose || fileCfg.Output.Verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	// Start from the file's options, then lay explicitly set flags on top.
	opts := fileCfg.PipelineOptions()
	if fileCfg.Pipeline.Preset != "" && *preset == "" {
		*preset = fileCfg.Pipeline.Preset
	}
	opts.CTOnly = opts.CTOnly || *ctOnly
	if *previewDir != "" {
		opts.PreviewDir = *previewDir
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tissue":
			opts.Tissue = *tissueName
		case "isovalue":
			opts.Isovalue = isovalue
		case "smooth":
			opts.SmoothIterations = smooth
		case "reduce":
			opts.Reduction = reduce
		case "rotate":
			opts.Rotate = rotate
		case "rotaxis":
			opts.RotationAxis = rotAxis
		case "rotangle":
			opts.RotationAngle = rotAngle
		case "shrink":
			opts.Shrink = shrink
		case "shrink-max":
			opts.ShrinkMaxDim = shrinkMax
		case "anisotropic":
			opts.Anisotropic = anisotropic
		case "median":
			opts.MedianFilter = median
		case "pad":
			opts.PadVoxels = pad
		}
	})

	cfg, err := pipeline.Resolve(opts, *preset)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid run parameters")
	}

	if !*batchMode && !*twoStage {
		if _, err := pipeline.Run(*input, *output, cfg, log); err != nil {
			log.Fatal().Err(err).Msg("conversion failed")
		}
		return
	}

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	ctrl := batch.NewController(*input, *output, cfg, log)
	ctrl.MinSlices = *minSlices
	if !setFlags["min-slices"] && fileCfg.Batch.MinSlices > 0 {
		ctrl.MinSlices = fileCfg.Batch.MinSlices
	}
	ctrl.Dedup = *dedup || fileCfg.Batch.Dedup
	ctrl.OutPrefix = *outPrefix
	if ctrl.OutPrefix == "" {
		ctrl.OutPrefix = fileCfg.Batch.OutPrefix
	}

	var report *batch.Report
	if *twoStage {
		ts := batch.NewTwoStage(ctrl, skull.NewIsolator(log), *output, log)
		ts.KeepIntermediate = *keepIntermediate || fileCfg.Output.KeepIntermediate
		report, err = ts.Run()
	} else {
		report, err = ctrl.Run()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("batch failed")
	}

	report.Log(log)
	if report.AllFailed() {
		os.Exit(1)
	}
}
