// Command h264enc reads a raw planar 4:2:0 YUV file and writes an H.264
// elementary stream, driving internal/encoder frame by frame while a
// worker pool prefetches the next picture's pixels from disk off the
// driver goroutine (spec.md §5's single-goroutine Encode constraint means
// only the file read overlaps, not the encode itself).
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/h264enc/internal/config"
	"github.com/zsiec/h264enc/internal/encoder"
	"github.com/zsiec/h264enc/internal/frame"
	"github.com/zsiec/h264enc/internal/frame/refimpl"
	"github.com/zsiec/h264enc/internal/workerpool"
)

var version = "dev"

type cliArgs struct {
	input  string
	output string

	width  int
	height int

	frameReference int
	keyintMax      int
	keyintMin      int
	bframe         int
	qp             int

	cabac             bool
	annexb            bool
	deblocking        bool
	scenecutThreshold int
}

func main() {
	os.Exit(run())
}

func run() int {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()})))

	var a cliArgs
	root := &cobra.Command{
		Use:     "h264enc",
		Short:   "Encode a raw planar YUV 4:2:0 file to an H.264 elementary stream",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return encodeFile(cmd.Context(), a)
		},
	}
	root.Flags().StringVarP(&a.input, "input", "i", "", "input raw YUV 4:2:0 file (required)")
	root.Flags().StringVarP(&a.output, "output", "o", "", "output elementary stream file (required)")
	root.Flags().IntVar(&a.width, "width", 0, "picture width in pixels, multiple of 16 (required)")
	root.Flags().IntVar(&a.height, "height", 0, "picture height in pixels, multiple of 16 (required)")
	root.Flags().IntVar(&a.frameReference, "ref", 1, "number of reference frames")
	root.Flags().IntVar(&a.keyintMax, "keyint", 250, "maximum GOP length")
	root.Flags().IntVar(&a.keyintMin, "keyint-min", 0, "minimum GOP length (0: derive from keyint)")
	root.Flags().IntVar(&a.bframe, "bframes", 0, "number of consecutive B frames between references")
	root.Flags().IntVar(&a.qp, "qp", 26, "constant quantization parameter")
	root.Flags().BoolVar(&a.cabac, "cabac", false, "enable CABAC stuffing (reference codec is CAVLC-only)")
	root.Flags().BoolVar(&a.annexb, "annexb", true, "Annex-B start-code framing (false: 4-byte length prefix)")
	root.Flags().BoolVar(&a.deblocking, "deblock", true, "enable the in-loop deblocking filter")
	root.Flags().IntVar(&a.scenecutThreshold, "scenecut", -1, "scene-cut threshold [0,100], negative disables")
	root.MarkFlagRequired("input")
	root.MarkFlagRequired("output")
	root.MarkFlagRequired("width")
	root.MarkFlagRequired("height")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("encode failed", "error", err)
		return 1
	}
	return 0
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// lumaVariance is the lookahead job's scene-complexity score: the sample
// variance of the Y plane, computed at full resolution since this runs on a
// pool worker rather than the driver goroutine.
func lumaVariance(y *frame.Plane) float64 {
	n := y.Width * y.Height
	if n == 0 {
		return 0
	}
	var sum, sumSq float64
	for row := 0; row < y.Height; row++ {
		for col := 0; col < y.Width; col++ {
			v := float64(y.At(col, row))
			sum += v
			sumSq += v * v
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// frameSize returns the byte length of one 4:2:0 planar picture.
func frameSize(width, height int) int {
	return width*height + 2*(width/2)*(height/2)
}

// readPicture reads one raw 4:2:0 frame from r into a freshly allocated
// Picture, or returns io.EOF once no more whole frames remain.
func readPicture(r io.Reader, width, height int) (*frame.Picture, error) {
	buf := make([]byte, frameSize(width, height))
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	ySize := width * height
	cw, ch := width/2, height/2
	cSize := cw * ch

	mk := func(off, pw, ph int) frame.Plane {
		return frame.Plane{Data: buf[off : off+pw*ph], Width: pw, Height: ph, Stride: pw}
	}
	return &frame.Picture{
		Y: mk(0, width, height),
		U: mk(ySize, cw, ch),
		V: mk(ySize+cSize, cw, ch),
	}, nil
}

func encodeFile(ctx context.Context, a cliArgs) error {
	params := config.Params{
		Width:             a.width,
		Height:            a.height,
		FrameReference:    a.frameReference,
		KeyintMax:         a.keyintMax,
		KeyintMin:         a.keyintMin,
		BFrame:            a.bframe,
		AnnexB:            a.annexb,
		CABAC:             a.cabac,
		DeblockingFilter:  a.deblocking,
		ScenecutThreshold: a.scenecutThreshold,
		Analyse:           config.Analyse{SubpelRefine: 1},
	}

	ps, err := refimpl.NewFixedParameterSets(params)
	if err != nil {
		return fmt.Errorf("h264enc: build parameter sets: %w", err)
	}
	enc, err := encoder.Open(
		params,
		refimpl.NewFixedMbCodec(a.qp),
		refimpl.NewConstantQP(a.qp),
		ps,
		refimpl.NoopPostfilter{},
		refimpl.ScalarKernels{},
		slog.Default(),
	)
	if err != nil {
		return fmt.Errorf("h264enc: open encoder: %w", err)
	}

	in, err := os.Open(a.input)
	if err != nil {
		return fmt.Errorf("h264enc: open input: %w", err)
	}
	defer in.Close()
	bufIn := bufio.NewReaderSize(in, 1<<20)

	out, err := os.Create(a.output)
	if err != nil {
		return fmt.Errorf("h264enc: create output: %w", err)
	}
	defer out.Close()
	bufOut := bufio.NewWriterSize(out, 1<<20)

	pool := workerpool.New(max(1, runtime.NumCPU()-1))
	defer pool.Destroy()

	type readResult struct {
		pic        *frame.Picture
		complexity float64
		err        error
	}
	// readNext is the pool's lookahead job (spec.md §2/§5): besides
	// prefetching the next picture's pixels off the driver goroutine, it
	// scores the picture's luma variance as a cheap scene-complexity number
	// for CLI progress reporting only — never fed into the encoder's own
	// scene-cut decision, which stays internal to internal/encoder.
	readNext := func() *readResult {
		pic, err := readPicture(bufIn, a.width, a.height)
		if err != nil {
			return &readResult{err: err}
		}
		return &readResult{pic: pic, complexity: lumaVariance(&pic.Y)}
	}

	// Writing is split onto its own goroutine so a slow output disk never
	// stalls the prefetch/encode loop below; errgroup ties its lifetime and
	// error propagation to the same cancellation as the signal handler.
	// Result.Buf is the Writer's single shared backing array, overwritten by
	// the very next Encode call, so each picture's NAL bytes are copied out
	// before handoff rather than passed by reference across goroutines.
	results := make(chan [][]byte, 4)
	var totalBytes int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for nals := range results {
			for _, buf := range nals {
				if _, err := bufOut.Write(buf); err != nil {
					return fmt.Errorf("h264enc: write output: %w", err)
				}
				totalBytes += len(buf)
			}
		}
		return bufOut.Flush()
	})

	copyResult := func(res *encoder.Result) [][]byte {
		nals := make([][]byte, len(res.NALs))
		for i, d := range res.NALs {
			nals[i] = append([]byte(nil), d.Payload(res.Buf)...)
		}
		return nals
	}

	var encoded int
	cur := readNext()
	for cur.err == nil {
		if err := gctx.Err(); err != nil {
			close(results)
			g.Wait()
			return err
		}

		token := new(struct{})
		if err := pool.Submit(gctx, func(any) any { return readNext() }, token); err != nil {
			close(results)
			g.Wait()
			return fmt.Errorf("h264enc: submit prefetch: %w", err)
		}

		slog.Debug("submitting picture", "frame", encoded, "luma_variance", cur.complexity)
		res, err := enc.Encode(cur.pic)
		if err != nil {
			close(results)
			g.Wait()
			return fmt.Errorf("h264enc: encode frame %d: %w", encoded, err)
		}
		if res != nil {
			select {
			case results <- copyResult(res):
			case <-gctx.Done():
				g.Wait()
				return gctx.Err()
			}
			encoded++
		}

		cur = pool.Wait(token).(*readResult)
	}
	if cur.err != io.EOF {
		close(results)
		g.Wait()
		return fmt.Errorf("h264enc: read input: %w", cur.err)
	}

	// Drain any pictures still buffered in the reorder window.
	for {
		res, err := enc.Encode(nil)
		if err != nil {
			close(results)
			g.Wait()
			return fmt.Errorf("h264enc: drain encoder: %w", err)
		}
		if res == nil {
			break
		}
		select {
		case results <- copyResult(res):
		case <-gctx.Done():
			g.Wait()
			return gctx.Err()
		}
		encoded++
	}
	close(results)

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("encode complete", "frames", encoded, "bytes", totalBytes)
	return nil
}
