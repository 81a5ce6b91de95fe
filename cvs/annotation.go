package cvs

import (
	"fmt"
	"log"

	"github.com/tidwall/gjson"
)

// Annotation labels we dispatch on. Anything else is ignored.
const (
	LabelFrame      = "CVS Frame"
	LabelVideo      = "CVS Video"
	LabelDifficulty = "CVS Video Difficulty"
)

const (
	NumCategories = 3
	// Only the first NumRaters answers of a feature are kept.
	NumRaters = 3
)

// Form feature name to category index (c1, c2, c3).
var featureCategories = map[string]int{
	"2 Structures":          0,
	"Hepatocystic Triangle": 1,
	"Cystic Plate":          2,
}

// Scores holds one rating per category and rater slot.
type Scores [NumCategories][NumRaters]Cell

func (s Scores) cells() []Cell {
	var cells []Cell
	for cat := 0; cat < NumCategories; cat++ {
		cells = append(cells, s[cat][:]...)
	}
	return cells
}

// Raters holds the display name in each rater slot.
type Raters [NumRaters]Cell

// One row per CVS Frame annotation.
type FrameRow struct {
	VideoID string
	NodeID  string
	Raters  Raters
	Scores  Scores
}

func (r FrameRow) cells() []Cell {
	cells := []Cell{Str(r.VideoID), Str(r.NodeID)}
	cells = append(cells, r.Raters[:]...)
	return append(cells, r.Scores.cells()...)
}

func (r FrameRow) HasNull() bool {
	return anyNull(r.cells())
}

// VideoRow merges the CVS Video and CVS Video Difficulty annotations
// sharing a (videoId, nodeId) key.
type VideoRow struct {
	VideoID          string
	VideoNodeID      Cell
	DifficultyNodeID Cell
	Raters           Raters
	Scores           Scores
	Difficulty       [NumRaters]Cell
}

func (r VideoRow) cells() []Cell {
	cells := []Cell{Str(r.VideoID), r.VideoNodeID, r.DifficultyNodeID}
	cells = append(cells, r.Raters[:]...)
	cells = append(cells, r.Scores.cells()...)
	return append(cells, r.Difficulty[:]...)
}

func (r VideoRow) HasNull() bool {
	return anyNull(r.cells())
}

// Parsed is the raw output of ParseAnnotations, before deduplication.
type Parsed struct {
	Frames []FrameRow
	// One row per distinct (videoId, nodeId), in order of first appearance.
	Videos []VideoRow
}

type ParseOptions struct {
	// If set, a rater slot whose name differs between categories takes the
	// last name seen instead of failing the parse.
	AllowRaterMismatch bool
}

type videoKey struct {
	videoID string
	nodeID  string
}

type parser struct {
	opts   ParseOptions
	frames []FrameRow
	order  []videoKey
	videos map[videoKey]*VideoRow
}

// ParseAnnotations reads an annotation export: a JSON array of videos, each
// with a videoId and a list of annotations.
func ParseAnnotations(doc []byte, opts ParseOptions) (Parsed, error) {
	if !gjson.ValidBytes(doc) {
		return Parsed{}, &SchemaError{Msg: "document is not valid JSON"}
	}
	root := gjson.ParseBytes(doc)
	if !root.IsArray() {
		return Parsed{}, &SchemaError{Msg: "document must be an array of videos"}
	}

	p := &parser{
		opts:   opts,
		videos: make(map[videoKey]*VideoRow),
	}
	for i, entry := range root.Array() {
		if err := p.parseVideo(fmt.Sprintf("[%d]", i), entry); err != nil {
			return Parsed{}, err
		}
	}

	parsed := Parsed{Frames: p.frames}
	for _, key := range p.order {
		parsed.Videos = append(parsed.Videos, *p.videos[key])
	}
	return parsed, nil
}

func (p *parser) parseVideo(path string, entry gjson.Result) error {
	if !entry.IsObject() {
		return &SchemaError{Path: path, Msg: "video entry must be an object"}
	}
	videoID, err := requireScalar(path+".videoId", entry.Get("videoId"))
	if err != nil {
		return err
	}
	annotations := entry.Get("annotations")
	if !annotations.IsArray() {
		return &SchemaError{Path: path + ".annotations", Msg: "missing or not an array"}
	}
	for i, annotation := range annotations.Array() {
		apath := fmt.Sprintf("%s.annotations[%d]", path, i)
		if err := p.parseAnnotation(apath, videoID, annotation); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseAnnotation(path string, videoID string, annotation gjson.Result) error {
	label, err := requireScalar(path+".label.name", annotation.Get("label.name"))
	if err != nil {
		return err
	}
	nodeID, err := requireScalar(path+".nodeId", annotation.Get("nodeId"))
	if err != nil {
		return err
	}

	switch label {
	case LabelFrame, LabelVideo, LabelDifficulty:
	default:
		return nil
	}

	features, err := readFeatures(path, annotation)
	if err != nil {
		return err
	}

	if label == LabelFrame {
		row := FrameRow{VideoID: videoID, NodeID: nodeID}
		for _, f := range features {
			cat, ok := featureCategories[f.name]
			if !ok {
				continue
			}
			for i, answer := range f.answers {
				row.Scores[cat][i] = answer.value
				if err := p.setRater(&row.Raters, i, answer.userName, videoID, nodeID); err != nil {
					return err
				}
			}
		}
		p.frames = append(p.frames, row)
		return nil
	}

	key := videoKey{videoID, nodeID}
	row := p.videos[key]
	if row == nil {
		row = &VideoRow{VideoID: videoID}
		p.videos[key] = row
		p.order = append(p.order, key)
	}

	if label == LabelDifficulty {
		row.DifficultyNodeID = Str(nodeID)
		for _, f := range features {
			for i, answer := range f.answers {
				row.Difficulty[i] = answer.value
			}
		}
		return nil
	}

	row.VideoNodeID = Str(nodeID)
	var uncategorized []feature
	for _, f := range features {
		cat, ok := featureCategories[f.name]
		if !ok {
			uncategorized = append(uncategorized, f)
			continue
		}
		for i, answer := range f.answers {
			if err := p.setRater(&row.Raters, i, answer.userName, videoID, nodeID); err != nil {
				return err
			}
			row.Scores[cat][i] = answer.value
		}
	}
	// other features name raters after the categories, without an identity check
	for _, f := range uncategorized {
		for i, answer := range f.answers {
			if answer.userName.Valid {
				row.Raters[i] = answer.userName
			}
		}
	}
	return nil
}

// Fills a rater slot. A null name never replaces a set one, and two set
// names that differ are a mismatch.
func (p *parser) setRater(raters *Raters, slot int, name Cell, videoID string, nodeID string) error {
	if !name.Valid {
		return nil
	}
	prev := raters[slot]
	if prev.Valid && prev != name {
		mismatch := &RaterMismatchError{
			VideoID:  videoID,
			NodeID:   nodeID,
			Slot:     slot,
			Previous: prev.Value,
			Current:  name.String(),
		}
		if !p.opts.AllowRaterMismatch {
			return mismatch
		}
		log.Printf("[parse] warning: %v (keeping %q)", mismatch, name.String())
	}
	raters[slot] = name
	return nil
}

type answer struct {
	userName Cell
	value    Cell
}

type feature struct {
	name    string
	answers []answer
}

// Reads the form features of an annotation, keeping at most NumRaters
// answers per feature.
func readFeatures(path string, annotation gjson.Result) ([]feature, error) {
	raw := annotation.Get("formFeatures")
	if !raw.IsArray() {
		return nil, &SchemaError{Path: path + ".formFeatures", Msg: "missing or not an array"}
	}
	var features []feature
	for i, f := range raw.Array() {
		fpath := fmt.Sprintf("%s.formFeatures[%d]", path, i)
		answers := f.Get("answers")
		if !answers.IsArray() {
			return nil, &SchemaError{Path: fpath + ".answers", Msg: "missing or not an array"}
		}
		feat := feature{name: f.Get("name").String()}
		for j, a := range answers.Array() {
			if j >= NumRaters {
				break
			}
			feat.answers = append(feat.answers, answer{
				userName: cellOf(a.Get("userName")),
				value:    cellOf(a.Get("value")),
			})
		}
		features = append(features, feat)
	}
	return features, nil
}

// Strings and numbers become their textual form; null or absent values are
// null cells; objects and arrays keep their raw JSON.
func cellOf(r gjson.Result) Cell {
	switch r.Type {
	case gjson.Null:
		return Null
	case gjson.String:
		return Str(r.Str)
	case gjson.Number:
		return Str(r.Raw)
	case gjson.JSON:
		return Str(r.Raw)
	default:
		return Str(r.String())
	}
}

func requireScalar(path string, r gjson.Result) (string, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return "", &SchemaError{Path: path, Msg: "missing"}
	}
	switch r.Type {
	case gjson.String:
		return r.Str, nil
	case gjson.Number:
		return r.Raw, nil
	}
	return "", &SchemaError{Path: path, Msg: "must be a string or number"}
}
