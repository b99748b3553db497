// Command pdftrace inspects PDF files: document information, single
// objects and decoded streams, and the drawing calls a page produces.
//
// Usage:
//
//	pdftrace [flags] info FILE
//	pdftrace [flags] object FILE N [G]
//	pdftrace [flags] stream FILE N [G]
//	pdftrace [flags] trace FILE PAGE
//	pdftrace [flags] bbox FILE
//	pdftrace [flags] images FILE PAGE [DIR]
//
// Pages are numbered from 1.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/device"
	"github.com/tsawler/pdfengine/interpreter"
	"github.com/tsawler/pdfengine/logging"
	"github.com/tsawler/pdfengine/reader"
)

type options struct {
	password   string
	maxDecoded int64
	recover    bool
	verbose    bool
	strict     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.password, "password", "", "password for encrypted documents")
	flag.Int64Var(&opts.maxDecoded, "max-decoded", 0, "maximum decoded size of one stream in bytes (0 for no limit)")
	flag.BoolVar(&opts.recover, "recover", false, "rebuild a damaged cross-reference table by scanning the file")
	flag.BoolVar(&opts.verbose, "v", false, "log recovered problems to stderr")
	flag.BoolVar(&opts.strict, "strict", false, "stop at the first content stream error")
	flag.Usage = usage
	flag.Parse()

	if opts.verbose {
		logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}
	if err := run(os.Stdout, args[0], args[1:], opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdftrace: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: pdftrace [flags] command FILE [args]

commands:
  info FILE                 version, page count and document information
  object FILE N [G]         print object N
  stream FILE N [G]         write the decoded data of stream N to stdout
  trace FILE PAGE           log the drawing calls of a page
  bbox FILE                 print the bounds of the marks on each page
  images FILE PAGE [DIR]    list the images of a page, saving them to DIR

flags:
`)
	flag.PrintDefaults()
}

func run(w io.Writer, cmd string, args []string, opts options) error {
	r, err := reader.Open(args[0],
		reader.WithPassword(opts.password),
		reader.WithMaxDecodedSize(opts.maxDecoded),
		reader.WithRecovery(opts.recover),
	)
	if err != nil {
		return err
	}
	defer r.Close()

	switch cmd {
	case "info":
		return info(w, r)
	case "object":
		obj, err := object(r, args[1:])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, obj)
		return nil
	case "stream":
		obj, err := object(r, args[1:])
		if err != nil {
			return err
		}
		s, ok := obj.(*core.Stream)
		if !ok {
			return fmt.Errorf("object %s is not a stream", args[1])
		}
		data, err := r.DecodeStream(s)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "trace":
		return trace(w, r, args[1:], opts)
	case "bbox":
		return bbox(w, r, opts)
	case "images":
		return images(w, r, args[1:])
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func info(w io.Writer, r *reader.Reader) error {
	n, err := r.PageCount()
	if err != nil {
		return err
	}
	doc, err := r.Info()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Version:   %s\n", r.Version())
	fmt.Fprintf(w, "Pages:     %d\n", n)
	fmt.Fprintf(w, "Objects:   %d\n", r.NumObjects())
	fmt.Fprintf(w, "Encrypted: %v\n", r.IsEncrypted())
	if r.Recovered() {
		fmt.Fprintln(w, "Recovered: true")
	}
	fields := []struct{ name, value string }{
		{"Title", doc.Title},
		{"Author", doc.Author},
		{"Subject", doc.Subject},
		{"Keywords", doc.Keywords},
		{"Creator", doc.Creator},
		{"Producer", doc.Producer},
		{"Created", doc.CreationDate},
		{"Modified", doc.ModDate},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(w, "%-10s %s\n", f.name+":", f.value)
		}
	}
	return nil
}

// object resolves "N [G]". Without a generation the one recorded in the
// xref table is used.
func object(r *reader.Reader, args []string) (core.Object, error) {
	if len(args) == 0 {
		return nil, errors.New("missing object number")
	}
	num, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("object number: %w", err)
	}
	if len(args) == 1 {
		return r.GetObject(num)
	}
	gen, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}
	return r.ResolveReference(core.IndirectRef{Number: num, Generation: gen})
}

func pageArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("missing page number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("page number: %w", err)
	}
	return n - 1, nil
}

func interpreterOptions(opts options) []interpreter.Option {
	if opts.strict {
		return nil
	}
	return []interpreter.Option{interpreter.SkipErrors()}
}

func trace(w io.Writer, r *reader.Reader, args []string, opts options) error {
	index, err := pageArg(args)
	if err != nil {
		return err
	}
	page, err := r.GetPage(index)
	if err != nil {
		return err
	}

	// Drop the time so that traces of the same page compare equal.
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	dev := device.NewTraceDevice(slog.New(h))
	return interpreter.New(dev, r, interpreterOptions(opts)...).RunPage(page)
}

func bbox(w io.Writer, r *reader.Reader, opts options) error {
	all, err := r.Pages()
	if err != nil {
		return err
	}
	for i, page := range all {
		dev := device.NewBBoxDevice()
		if err := interpreter.New(dev, r, interpreterOptions(opts)...).RunPage(page); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		b, ok := dev.Bounds()
		if !ok {
			fmt.Fprintf(w, "%d: empty\n", i+1)
			continue
		}
		fmt.Fprintf(w, "%d: %g %g %g %g\n", i+1, b.X, b.Y, b.X+b.Width, b.Y+b.Height)
	}
	return nil
}

// encodedExt names the files of images whose data stays codec-encoded.
var encodedExt = map[string]string{
	"DCTDecode":   ".jpg",
	"JPXDecode":   ".jp2",
	"JBIG2Decode": ".jbig2",
}

func images(w io.Writer, r *reader.Reader, args []string) error {
	index, err := pageArg(args)
	if err != nil {
		return err
	}
	page, err := r.GetPage(index)
	if err != nil {
		return err
	}
	imgs, err := r.PageImages(page)
	if err != nil {
		return err
	}

	dir := ""
	if len(args) > 1 {
		dir = args[1]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	for i, img := range imgs {
		fmt.Fprintf(w, "%s %s %dx%d %s bpc=%d", img.Name, img.Ref, img.Width, img.Height, img.ColorSpace, img.BitsPerComponent)
		if img.Filter != "" {
			fmt.Fprintf(w, " filter=%s", img.Filter)
		}
		fmt.Fprintln(w)
		if dir == "" {
			continue
		}

		data, err := img.ToPNG()
		ext := ".png"
		if errors.Is(err, reader.ErrEncodedImage) {
			data, ext, err = img.Data, encodedExt[img.Filter], nil
		}
		if err != nil {
			logging.Logger().Warn("image not saved", "image", img.Name, "error", err)
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("p%d-%d%s", index+1, i+1, ext))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
