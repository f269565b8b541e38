package evaluate

import "errors"

var (
	errEvalTemplateMissing = errors.New("no response_evaluation prompt template resolved for this pipeline")
	errJudgeUnparsable     = errors.New("judge response contained no parsable score")
)
