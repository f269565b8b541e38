package evaluate

import (
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/fenwick-ai/ragengine/internal/types"
)

// reportRow is the flat parquet schema one finished evaluation job exports
// to. Cosine and judge columns coexist; whichever mode didn't run leaves its
// columns zeroed, mirroring EvaluationReport's sparse JSON shape.
type reportRow struct {
	JobID     string  `parquet:"job_id"`
	UserID    string  `parquet:"user_id"`
	Mode      string  `parquet:"mode"`
	Status    int32   `parquet:"status"`
	StartTime int64   `parquet:"start_time_unix_ms"`

	Relevance    float64 `parquet:"relevance"`
	Coherence    float64 `parquet:"coherence"`
	Faithfulness float64 `parquet:"faithfulness"`
	Overall      float64 `parquet:"overall"`

	JudgeFaithfulness     float64 `parquet:"judge_faithfulness"`
	JudgeAnswerRelevance  float64 `parquet:"judge_answer_relevance"`
	JudgeContextRelevance float64 `parquet:"judge_context_relevance"`

	Error string `parquet:"error"`
}

// ExportReports writes finished evaluation jobs as a parquet table, the
// interchange format the dataset tooling already reads.
func ExportReports(w io.Writer, jobs []*types.EvaluationJob) error {
	writer := parquet.NewGenericWriter[reportRow](w)
	rows := make([]reportRow, 0, len(jobs))
	for _, job := range jobs {
		row := reportRow{
			JobID:     job.ID,
			UserID:    job.UserID,
			Mode:      string(job.Mode),
			Status:    int32(job.Status),
			StartTime: job.StartTime.UnixMilli(),
			Error:     job.ErrMsg,
		}
		if r := job.Report; r != nil {
			row.Relevance = r.Relevance
			row.Coherence = r.Coherence
			row.Faithfulness = r.Faithfulness
			row.Overall = r.Overall
			row.JudgeFaithfulness = r.JudgeFaithfulness
			row.JudgeAnswerRelevance = r.JudgeAnswerRelevance
			row.JudgeContextRelevance = r.JudgeContextRelevance
			if r.Error != "" {
				row.Error = r.Error
			}
		}
		rows = append(rows, row)
	}
	if _, err := writer.Write(rows); err != nil {
		return err
	}
	return writer.Close()
}
