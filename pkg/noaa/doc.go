// Package noaa implements queries to NOAA CO-OPS to retrieve tide data. Tide
// data is requested as high/low predictions per station (see PredictionQuery).
// A successful query returns a list of predictions with time, height, and
// whether it is high or low. All times are UTC.
package noaa
