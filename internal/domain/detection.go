package domain

// StatusSuccess is the detection service status code that carries results.
const StatusSuccess = 200

// Detection is one observed product count inside a batch.
type Detection struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// DetectionBatch is one message from the detection service describing the
// products currently visible to the detector and their counts.
type DetectionBatch struct {
	Status     int         `json:"status"`
	Data       []Detection `json:"data"`
	AverageFPS float64     `json:"averageFPS"`
}

// IsResult reports whether the batch carries detections. Anything else is
// treated as a heartbeat and ignored, not as an error.
func (b DetectionBatch) IsResult() bool {
	return b.Status == StatusSuccess && b.Data != nil
}
