// Package interpreter executes page content streams against a device.
//
// An Interpreter walks the operations produced by the contentstream
// parser, keeps the graphics state stack, and reduces every marking
// operator to a call on a device.Device: paths are filled, stroked or
// added to the clip, text is collected into runs of positioned glyphs,
// images are placed on the unit square, and form XObjects, tiling
// patterns and soft masks are run as nested content with their own
// resources.
//
//	dev := device.NewBBoxDevice()
//	in := interpreter.New(dev, r, interpreter.SkipErrors())
//	if err := in.RunPage(page); err != nil {
//	    return err
//	}
//	box, ok := dev.Bounds()
//
// Errors in individual operators go to the error handler set with
// WithErrorHandler. The default handler aborts on the first error;
// SkipErrors logs and continues. Either way, every clip and saved state
// opened by the content is closed on the device before Run returns.
package interpreter
