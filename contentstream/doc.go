// Package contentstream tokenizes PDF content streams into operations.
//
// Operands accumulate on a per-parser stack until an operator keyword
// consumes them:
//
//	p := contentstream.NewParser(data)
//	for {
//	    op, err := p.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        // A *core.SyntaxError. Calling Next again resumes after it.
//	        continue
//	    }
//	    fmt.Println(op.Operator, op.Operands)
//	}
//
// Operators are runs of regular characters starting with a letter, ' or ",
// so d0, T* and " are all operators. Arrays and dictionaries nest up to
// core.MaxDepth.
//
// An inline image (BI ... ID data EI) becomes a single BI operation whose
// only operand is a *core.Stream. Abbreviated keys such as /W and /CS and
// abbreviated names such as /G and /AHx are expanded.
package contentstream
