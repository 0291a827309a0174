package domain

import (
	"encoding/json"
	"fmt"
)

// Record is the plain key-value projection handed to external stores. Keys
// are the JSON field names of the source type.
type Record map[string]any

func toRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return r, nil
}

func fromRecord(r Record, v any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

func (g *Geoid) ToRecord() (Record, error) { return toRecord(g) }

func GeoidFromRecord(r Record) (*Geoid, error) {
	g := &Geoid{}
	if err := fromRecord(r, g); err != nil {
		return nil, err
	}
	if len(g.Essence) == 0 {
		return nil, fmt.Errorf("%w: record has empty essence", ErrDimension)
	}
	g.ensureMaps()
	return g, nil
}

func (s *Scar) ToRecord() (Record, error) { return toRecord(s) }

func ScarFromRecord(r Record) (*Scar, error) {
	s := &Scar{}
	if err := fromRecord(r, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *ContradictionEvent) ToRecord() (Record, error) { return toRecord(e) }

func ContradictionEventFromRecord(r Record) (*ContradictionEvent, error) {
	e := &ContradictionEvent{}
	if err := fromRecord(r, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (e LedgerEntry) ToRecord() (Record, error) { return toRecord(e) }

func LedgerEntryFromRecord(r Record) (LedgerEntry, error) {
	var e LedgerEntry
	err := fromRecord(r, &e)
	return e, err
}
