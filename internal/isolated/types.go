package isolated

import "github.com/chuliyu/jobgate/pkg/types"

// descriptor is the five-field job descriptor §4.4/§6 specifies for
// cross-process transport: {createEpochMs, id, kind, payload, handleId}.
// The completion handle itself never crosses the process boundary — only
// its id does, carried in HandleID (always equal to ID per §4.4).
type descriptor struct {
	CreateEpochMs int64                  `json:"createEpochMs"`
	ID            types.JobID            `json:"id"`
	Kind          types.Kind             `json:"kind"`
	Payload       types.PDF2ImagePayload `json:"payload"`
	HandleID      types.JobID            `json:"handleId"`
}

func descriptorFromJob(job *types.Job) descriptor {
	var payload types.PDF2ImagePayload
	if job.PDF2Image != nil {
		payload = *job.PDF2Image
	}
	return descriptor{
		CreateEpochMs: job.CreateEpochMs,
		ID:            job.ID,
		Kind:          job.Kind,
		Payload:       payload,
		HandleID:      job.ID,
	}
}

// resultTuple is the (handleId, Result) pair a worker process returns on
// the result FIFO (its stdout), to be reconciled against the driving
// process's pending map.
type resultTuple struct {
	HandleID types.JobID  `json:"handleId"`
	Result   types.Result `json:"result"`
}
