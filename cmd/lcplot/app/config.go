package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

const (
	PlotLightcurve = "lightcurve"
	PlotCumulative = "cumulative"
	PlotPSD        = "psd"
)

type PlotKind string

const (
	AxisRate   = "rate"
	AxisCounts = "counts"
)

type YAxis string

type Config struct {
	DBPath     string
	ObsID      int64
	OutputFile string
	Format     ImageFormat
	Kind       PlotKind
	YAxis      YAxis
	BinWidth   float64
	FontPath   string
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

var validPlotKinds = map[PlotKind]struct{}{
	PlotLightcurve: {},
	PlotCumulative: {},
	PlotPSD:        {},
}

var validYAxes = map[YAxis]struct{}{
	AxisRate:   {},
	AxisCounts: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Kind:     PlotLightcurve,
		YAxis:    AxisRate,
		BinWidth: 500,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, plotKind, yAxis string
	flag.StringVar(&c.DBPath, "db", "", "Path to the catalog database file")
	flag.Int64Var(&c.ObsID, "obsid", 0, "Chandra observation ID")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&plotKind, "kind", string(PlotLightcurve), "Plot kind. [lightcurve, cumulative, psd]")
	flag.StringVar(&yAxis, "y", string(AxisRate), "Lightcurve vertical axis. [rate, counts]")
	flag.Float64Var(&c.BinWidth, "bin", c.BinWidth, "Bin width in seconds")
	flag.StringVar(&c.FontPath, "font", "", "Path to a TrueType font for labels (optional)")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)
	plotKind = strings.ToLower(plotKind)
	yAxis = strings.ToLower(yAxis)

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.ObsID <= 0 {
		err = errors.New("observation id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if c.BinWidth <= 0 {
		err = errors.New("bin width must be positive")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if _, ok := validPlotKinds[PlotKind(plotKind)]; !ok {
		err = fmt.Errorf("invalid plot kind: %s", plotKind)
	} else if _, ok := validYAxes[YAxis(yAxis)]; !ok {
		err = fmt.Errorf("invalid vertical axis: %s", yAxis)
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Kind = PlotKind(plotKind)
	c.YAxis = YAxis(yAxis)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
