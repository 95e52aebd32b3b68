package main

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

const envFile = ".env"

// Environment variables with defaults for command flags.
const (
	blockSizeEnv       = "CLIP_BLOCK_SIZE"
	sampleRateEnv      = "CLIP_SAMPLE_RATE"
	resampleQualityEnv = "CLIP_RESAMPLE_QUALITY"
)

const (
	defaultBlockSize       = 512
	defaultSampleRate      = 48000
	defaultResampleQuality = 4
)

func envInt(name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.WithFields(logrus.Fields{"env": name, "value": v}).Warn("invalid integer, default is used")
		return def
	}
	return i
}

func envFloat(name string, def float64) float64 {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.WithFields(logrus.Fields{"env": name, "value": v}).Warn("invalid number, default is used")
		return def
	}
	return f
}
