package isolated

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chuliyu/jobgate/internal/pdfconvert"
	"github.com/chuliyu/jobgate/pkg/types"
)

// RunWorkerProcess is the entry point for a spawned worker process: it
// reads job descriptors from stdin and writes result tuples to stdout,
// one JSON object per line each way, until stdin closes (the driving
// process exited or terminated it). It runs the same PDF2IMAGE execution
// policy as §4.2, just publishing its result to the result FIFO instead
// of fulfilling a local handle.
func RunWorkerProcess(name string, converter pdfconvert.Converter) error {
	dec := json.NewDecoder(os.Stdin)
	enc := json.NewEncoder(os.Stdout)

	for {
		var d descriptor
		if err := dec.Decode(&d); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("workerproc %s: decode descriptor: %w", name, err)
		}

		result := executeDescriptor(d, name, converter)

		if err := enc.Encode(resultTuple{HandleID: d.HandleID, Result: result}); err != nil {
			return fmt.Errorf("workerproc %s: encode result: %w", name, err)
		}
	}
}

func executeDescriptor(d descriptor, workerName string, converter pdfconvert.Converter) (result types.Result) {
	createTime := time.UnixMilli(d.CreateEpochMs)
	dequeueTime := time.Now()

	result.WorkerName = workerName
	result.DequeueElapsed = dequeueTime.Sub(createTime).Milliseconds()

	processStart := time.Now()
	outDir := fmt.Sprintf("%s/%s", "./out/pdf2image", d.ID)

	pages, err := converter.Convert(d.Payload.PDFFilePath, outDir, 4)
	finish := time.Now()

	if err != nil {
		result.ErrCode = "err"
		result.Err = "error processing job request"
	} else {
		result.Data = fmt.Sprintf("pdf2image job finished (%d), pages=%d", finish.UnixMilli(), pages)
	}

	result.ProcessElapsed = finish.Sub(processStart).Milliseconds()
	result.TotalElapsed = finish.Sub(createTime).Milliseconds()
	return result
}
