package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/flopp/go-findfont"
	"github.com/npillmayer/epress/core/font"
	"github.com/npillmayer/epress/core/font/opentype/ot"
	"github.com/npillmayer/epress/core/font/opentype/otquery"
	"github.com/npillmayer/epress/core/font/opentype/otsubset"
	"github.com/npillmayer/epress/core/locate/resources"
	"github.com/npillmayer/epress/core/percent"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
	xfont "golang.org/x/image/font"
	"golang.org/x/text/language"
)

// tracer traces with key 'epress.fonts'
func tracer() tracing.Trace {
	return tracing.Select("epress.fonts")
}

func main() {
	initDisplay()

	// set up logging
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter":    "go",
		"trace.epress.fonts": "Info",
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Printf("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())

	// command line flags
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	fontname := flag.String("font", "", "Font to load at startup")
	flag.Parse()
	tracer().SetTraceLevel(tracing.LevelError)    // will set the correct level later
	pterm.Info.Println("Welcome to OpenType CLI") // colored welcome message
	tracer().Infof("Trace level is %s", *tlevel)
	//
	// set up REPL
	repl, err := readline.New("ot > ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}
	intp := &Intp{repl: repl}
	//
	// load font to use
	if *fontname != "" {
		if err := intp.loadFont(*fontname); err != nil { // font name provided by flag
			tracer().Errorf(err.Error())
			os.Exit(4)
		}
	}
	//
	// start receiving commands
	pterm.Info.Println("Quit with <ctrl>D") // inform user how to stop the CLI
	level := tracing.LevelInfo
	switch strings.ToLower(*tlevel) {
	case "debug":
		level = tracing.LevelDebug
	case "error":
		level = tracing.LevelError
	}
	tracer().SetTraceLevel(level)
	intp.REPL() // go into interactive mode
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Intp is our interpreter object
type Intp struct {
	font *ot.Font
	repl *readline.Instance
}

// REPL starts interactive mode.
func (intp *Intp) REPL() {
	for {
		line, err := intp.repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		cmd, err := intp.parseCommand(line)
		if err != nil {
			tracer().Errorf(err.Error())
			continue
		}
		err, quit := intp.execute(cmd)
		if err != nil {
			tracer().Errorf(err.Error())
			continue
		}
		if quit {
			break
		}
	}
	pterm.Info.Println("Good bye!")
}

// Command is a parsed input line: a verb plus arguments.
type Command struct {
	code int
	args []string
}

const (
	QUIT int = iota
	HELP
	FONTS
	LOAD
	INFO
	TABLES
	FACES
	SUBSET
)

func (intp *Intp) parseCommand(line string) (*Command, error) {
	fields := strings.Fields(line)
	command := &Command{args: fields[1:]}
	switch strings.ToLower(fields[0]) {
	case "quit":
		command.code = QUIT
	case "fonts":
		command.code = FONTS
		tracer().Infof("fonts: listing system fonts")
	case "load":
		command.code = LOAD
		tracer().Infof("load: resolving font '%s'", command.arg(0))
	case "info":
		command.code = INFO
	case "tables":
		command.code = TABLES
	case "faces":
		command.code = FACES
		tracer().Infof("faces: registry prefix '%s'", command.arg(0))
	case "subset":
		command.code = SUBSET
	default:
		command.code = HELP
		command.args = fields // unknown verb => help topic
	}
	return command, nil
}

func (cmd *Command) arg(i int) string {
	if i < len(cmd.args) {
		return cmd.args[i]
	}
	return ""
}

func (intp *Intp) execute(cmd *Command) (error, bool) {
	tracer().Debugf("cmd = %v %v", cmd.code, cmd.args)
	switch cmd.code {
	case QUIT:
		return nil, true
	case HELP:
		help(cmd.arg(0))
	case FONTS:
		listSystemFonts(cmd.arg(0))
	case LOAD:
		if cmd.arg(0) == "" {
			return errors.New("usage: load <path or font name>"), false
		}
		return intp.loadFont(cmd.arg(0)), false
	case INFO:
		if err := intp.checkFont(); err != nil {
			return err, false
		}
		intp.printInfo()
	case TABLES:
		if err := intp.checkFont(); err != nil {
			return err, false
		}
		for _, tag := range intp.font.TableTags() {
			table := intp.font.Table(tag)
			_, size := table.Extent()
			pterm.Printfln("%s  %7d bytes  checksum %08x", tag, size, table.Checksum())
		}
	case FACES:
		faces := font.GlobalRegistry().FamiliesWithPrefix(cmd.arg(0))
		if len(faces) == 0 {
			pterm.Info.Println("no registered faces (resolved fonts land in the registry)")
		}
		for _, face := range faces {
			pterm.Printfln("%s", face)
		}
	case SUBSET:
		if err := intp.checkFont(); err != nil {
			return err, false
		}
		if len(cmd.args) < 2 {
			return errors.New("usage: subset <text> <output file>"), false
		}
		text := strings.Join(cmd.args[:len(cmd.args)-1], " ")
		return intp.subset(text, cmd.args[len(cmd.args)-1]), false
	}
	return nil, false
}

func (intp *Intp) checkFont() error {
	if intp.font == nil {
		return errors.New("no font loaded")
	}
	return nil
}

// loadFont resolves a name through the resource machinery, which tries the
// registry, the file system and the platform's font folders in turn, and
// parses the result into table structures.
func (intp *Intp) loadFont(fontname string) error {
	promise := resources.ResolveFont(nil, fontname, xfont.StyleNormal, xfont.WeightNormal)
	f, err := promise.Font()
	if err != nil {
		return err
	}
	otf, err := ot.Parse(f.Binary)
	if err != nil {
		tracer().Errorf("cannot decode font %s: %s", fontname, err)
		return err
	}
	otf.F = f
	intp.font = otf
	pterm.Printfln("loaded font %s", f.Fontname)
	pterm.Printfln("font tables: %v", otf.TableTags())
	return nil
}

func (intp *Intp) printInfo() {
	f := intp.font
	pterm.Printfln("type:    %s", otquery.FontType(f))
	names := otquery.NameInfo(f, language.Und)
	for _, key := range []string{"family", "subfamily", "fullname", "version"} {
		if val, ok := names[key]; ok {
			pterm.Printfln("%-8s %s", key+":", val)
		}
	}
	pterm.Printfln("glyphs:  %d", otquery.GlyphCount(f))
	if lt := otquery.LayoutTables(f); len(lt) > 0 {
		pterm.Printfln("layout:  %v", lt)
	}
}

// subset retains the glyphs for the runes of text, plus anything those
// glyphs are composed of, and writes the rewritten font to outfile.
func (intp *Intp) subset(text, outfile string) error {
	usage := otsubset.NewUsageSet()
	usage.AddString(text)
	result, err := otsubset.Subset(intp.font.F.Binary, usage, otsubset.Config{})
	if err != nil {
		return err
	}
	if !result.Accepted {
		pterm.Info.Printfln("subset is no smaller than the original (%d bytes), not writing",
			result.SizeBefore)
		return nil
	}
	if err := os.WriteFile(outfile, result.Font, 0644); err != nil {
		return err
	}
	pterm.Printfln("wrote %s: %d -> %d bytes (%s saved, %d glyphs)", outfile,
		result.SizeBefore, result.SizeAfter,
		percent.Ratio(int64(result.SizeBefore-result.SizeAfter), int64(result.SizeBefore)),
		result.GlyphCount)
	return nil
}

// listSystemFonts prints the font files of the platform's font folders,
// filtered by a case-insensitive substring pattern.
func listSystemFonts(pattern string) {
	pattern = strings.ToLower(pattern)
	paths := findfont.List()
	matches := paths[:0]
	for _, path := range paths {
		if pattern == "" || strings.Contains(strings.ToLower(filepath.Base(path)), pattern) {
			matches = append(matches, path)
		}
	}
	sort.Strings(matches)
	for _, path := range matches {
		pterm.Printfln("%s", path)
	}
	pterm.Printfln("%d fonts", len(matches))
}

func help(topic string) {
	tracer().Debugf("help %v", topic)
	switch strings.ToLower(topic) {
	case "subset":
		pterm.Info.Println("subset <text> <output file>")
		pterm.Println(`
	Rewrites the loaded font so that it retains just the glyphs needed
	to render <text>. Retention is closed over composite glyphs: parts
	of accented glyphs stay in, and glyph 0 (.notdef) is always kept.
	The result is written to <output file> if it is smaller than the
	original.
	`)
	case "load":
		pterm.Info.Println("load <path or font name>")
		pterm.Println(`
	Loads a font by file path, or by name via the system's font folders.
	Resolved fonts are put into the face registry (see 'faces').
	`)
	default:
		pterm.Info.Println("OpenType workbench")
		pterm.Println(`
	fonts <pattern>              list system fonts matching pattern
	load <path or font name>     load a font
	info                         metadata of the loaded font
	tables                       table directory of the loaded font
	faces <prefix>               registered faces with given name prefix
	subset <text> <output file>  subset the loaded font to <text>
	quit                         leave (as does <ctrl>D)

	'help subset' and 'help load' give details.
	`)
	}
}
