package datapath

import (
	"fmt"

	"github.com/alfreddata/pipelinekernel/pkerr"
)

// parseErr builds a pkerr.Error carrying the {full_path, char_range} pair
// the parser error contract requires, folded into Location since pkerr.Error
// has no dedicated range fields.
func parseErr(fullPath string, start, end int, format string, args ...interface{}) *pkerr.Error {
	reason := fmt.Sprintf(format, args...)
	loc := fmt.Sprintf("datapath.Parse[%d:%d]", start, end)
	return pkerr.Newf(pkerr.IncorrectDataPath, loc, "%q: %s", fullPath, reason)
}
