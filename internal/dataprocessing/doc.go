// Package dataprocessing turns a raw portal download into a clean numeric
// series and derives calendar covariates and summary statistics from it.
//
// # Architecture
//
// The package is organized into three components:
//
// 1. Reshaper: validates and cleans the downloaded table
// 2. Calendar features: one-hot day, month, weekday and ISO week indicators
// 3. Summarizer: descriptive statistics and correlations of the clean series
//
// # Reshaping Stages
//
// Reshape runs a fixed sequence of stages, each a separate function:
//
//	discardLabelRow → assignColumns → parseDates → normalizeSentinels → dropIncomplete → coerceNumeric
//
// A row with a missing value in any column is dropped whole; nothing is
// imputed.
//
// # Usage
//
//	frame, err := dataprocessing.NewReshaper().Reshape(raw, config.DataItemLabels("USD"))
//	if err != nil {
//	    return err
//	}
//	features := dataprocessing.BuildCalendarFeatures(frame.Index)
//	combined, err := frame.HStack(features)
//
// # Error Handling
//
// Every reshaping failure is an errors.ErrTypeDataShape AppError and no
// partial frame is returned.
package dataprocessing
