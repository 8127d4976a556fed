package reconcile

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/settings"
)

type fakeSource struct {
	streams      map[int64]models.VideoStream
	descriptors  map[int64]models.FaceDescriptor
	specials     map[int64]models.SpecialGroup
	logs         map[int64]models.FaceLog
	streamLinks  []models.Link
	specialLinks []models.Link
	common       []settings.Param

	// hidden ids are enumerated but cannot be fetched
	hidden map[int64]bool
	err    error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		streams:     map[int64]models.VideoStream{},
		descriptors: map[int64]models.FaceDescriptor{},
		specials:    map[int64]models.SpecialGroup{},
		logs:        map[int64]models.FaceLog{},
		hidden:      map[int64]bool{},
	}
}

func (f *fakeSource) IDs(_ context.Context, entity models.Entity) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch entity {
	case models.EntityStream:
		return keys(f.streams), nil
	case models.EntityDescriptor:
		return keys(f.descriptors), nil
	case models.EntitySpecialGroup:
		return keys(f.specials), nil
	case models.EntityFaceLog:
		return keys(f.logs), nil
	}
	return nil, fmt.Errorf("no ids for %s", entity)
}

func (f *fakeSource) Links(_ context.Context, entity models.Entity) ([]models.Link, error) {
	if entity == models.EntityStreamLink {
		return f.streamLinks, nil
	}
	return f.specialLinks, nil
}

func (f *fakeSource) Stream(_ context.Context, id int64) (models.VideoStream, bool, error) {
	v, ok := f.streams[id]
	return v, ok && !f.hidden[id], nil
}

func (f *fakeSource) Descriptor(_ context.Context, id int64) (models.FaceDescriptor, bool, error) {
	v, ok := f.descriptors[id]
	return v, ok && !f.hidden[id], nil
}

func (f *fakeSource) SpecialGroup(_ context.Context, id int64) (models.SpecialGroup, bool, error) {
	v, ok := f.specials[id]
	return v, ok && !f.hidden[id], nil
}

func (f *fakeSource) FaceLog(_ context.Context, id int64) (models.FaceLog, bool, error) {
	v, ok := f.logs[id]
	return v, ok && !f.hidden[id], nil
}

func (f *fakeSource) CommonSettings(context.Context) ([]settings.Param, error) {
	return f.common, nil
}

type row struct {
	group int64
	value any
}

// fakeDest is an in-memory destination that enforces link foreign keys.
type fakeDest struct {
	mu        sync.Mutex
	groups    []models.TenantGroup
	rows      map[models.Entity]map[int64]row
	links     map[models.Entity]Set[models.Link]
	configs   map[models.ConfigTable]map[int64]settings.Document
	sequences map[models.Entity]int64
	resets    int
	mutations int

	failInsert map[models.Entity]error
}

func newFakeDest(groups ...models.TenantGroup) *fakeDest {
	d := &fakeDest{
		groups: groups,
		rows:   map[models.Entity]map[int64]row{},
		links: map[models.Entity]Set[models.Link]{
			models.EntityStreamLink:       {},
			models.EntitySpecialGroupLink: {},
		},
		configs: map[models.ConfigTable]map[int64]settings.Document{
			models.ConfigCommon:        {},
			models.ConfigDefaultStream: {},
		},
		sequences:  map[models.Entity]int64{},
		failInsert: map[models.Entity]error{},
	}
	for _, e := range []models.Entity{models.EntityStream, models.EntityDescriptor, models.EntitySpecialGroup, models.EntityFaceLog, "descriptor_images"} {
		d.rows[e] = map[int64]row{}
	}
	return d
}

func (d *fakeDest) put(entity models.Entity, group, id int64, v any) {
	d.rows[entity][id] = row{group: group, value: v}
}

func (d *fakeDest) TenantGroupByName(_ context.Context, name string) (models.TenantGroup, bool, error) {
	for _, g := range d.groups {
		if g.Name == name {
			return g, true, nil
		}
	}
	return models.TenantGroup{}, false, nil
}

func (d *fakeDest) IDs(_ context.Context, group int64, entity models.Entity) ([]int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []int64
	for id, r := range d.rows[entity] {
		if r.group == group {
			out = append(out, id)
		}
	}
	return out, nil
}

func ownerEntity(link models.Entity) models.Entity {
	if link == models.EntityStreamLink {
		return models.EntityStream
	}
	return models.EntitySpecialGroup
}

func (d *fakeDest) Links(_ context.Context, group int64, entity models.Entity) ([]models.Link, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	owners := d.rows[ownerEntity(entity)]
	var out []models.Link
	for l := range d.links[entity] {
		if owners[l.Owner].group == group {
			out = append(out, l)
		}
	}
	return out, nil
}

func (d *fakeDest) Delete(_ context.Context, entity models.Entity, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutations++
	delete(d.rows[entity], id)
	switch entity {
	case models.EntityStream:
		d.dropLinks(models.EntityStreamLink, func(l models.Link) bool { return l.Owner == id })
	case models.EntitySpecialGroup:
		d.dropLinks(models.EntitySpecialGroupLink, func(l models.Link) bool { return l.Owner == id })
	case models.EntityDescriptor:
		delete(d.rows["descriptor_images"], id)
		d.dropLinks(models.EntityStreamLink, func(l models.Link) bool { return l.Descriptor == id })
		d.dropLinks(models.EntitySpecialGroupLink, func(l models.Link) bool { return l.Descriptor == id })
	}
	return nil
}

func (d *fakeDest) dropLinks(entity models.Entity, match func(models.Link) bool) {
	for l := range d.links[entity] {
		if match(l) {
			delete(d.links[entity], l)
		}
	}
}

func (d *fakeDest) DeleteLink(_ context.Context, entity models.Entity, l models.Link) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutations++
	delete(d.links[entity], l)
	return nil
}

func (d *fakeDest) insert(entity models.Entity, group, id int64, v any) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failInsert[entity]; err != nil {
		return false, err
	}
	if _, ok := d.rows[entity][id]; ok {
		return false, nil
	}
	d.mutations++
	d.put(entity, group, id, v)
	return true, nil
}

func (d *fakeDest) InsertStream(_ context.Context, group int64, s models.VideoStream, doc settings.Document) (bool, error) {
	return d.insert(models.EntityStream, group, s.ID, doc)
}

func (d *fakeDest) InsertDescriptor(_ context.Context, group int64, fd models.FaceDescriptor) (bool, error) {
	ok, err := d.insert(models.EntityDescriptor, group, fd.ID, fd)
	if ok {
		d.mu.Lock()
		d.put("descriptor_images", group, fd.ID, fd.Image)
		d.mu.Unlock()
	}
	return ok, err
}

func (d *fakeDest) InsertSpecialGroup(_ context.Context, group int64, g models.SpecialGroup) (bool, error) {
	return d.insert(models.EntitySpecialGroup, group, g.ID, g)
}

func (d *fakeDest) InsertLink(_ context.Context, entity models.Entity, l models.Link) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failInsert[entity]; err != nil {
		return false, err
	}
	if _, ok := d.rows[ownerEntity(entity)][l.Owner]; !ok {
		return false, fmt.Errorf("foreign key violation: %s owner %d", entity, l.Owner)
	}
	if _, ok := d.rows[models.EntityDescriptor][l.Descriptor]; !ok {
		return false, fmt.Errorf("foreign key violation: %s descriptor %d", entity, l.Descriptor)
	}
	if d.links[entity].Has(l) {
		return false, nil
	}
	d.mutations++
	d.links[entity].Add(l)
	return true, nil
}

func (d *fakeDest) InsertFaceLog(_ context.Context, l models.FaceLog) (bool, error) {
	d.mu.Lock()
	group := d.rows[models.EntityStream][l.StreamID].group
	d.mu.Unlock()
	return d.insert(models.EntityFaceLog, group, l.ID, l)
}

func (d *fakeDest) ResetSequence(_ context.Context, entity models.Entity, next int64) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resets++
	for id := range d.rows[entity] {
		if id+1 > next {
			next = id + 1
		}
	}
	d.sequences[entity] = next
	return next, nil
}

func (d *fakeDest) LoadConfig(_ context.Context, table models.ConfigTable, group int64) (settings.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if doc, ok := d.configs[table][group]; ok {
		return maps.Clone(doc), nil
	}
	return settings.Document{}, nil
}

func (d *fakeDest) StoreConfig(_ context.Context, table models.ConfigTable, group int64, doc settings.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configs[table][group] = maps.Clone(doc)
	return nil
}

// state is a comparable copy of the destination contents.
type state struct {
	rows    map[models.Entity]map[int64]row
	links   map[models.Entity]Set[models.Link]
	configs map[models.ConfigTable]map[int64]settings.Document
}

func (d *fakeDest) state() state {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := state{
		rows:    map[models.Entity]map[int64]row{},
		links:   map[models.Entity]Set[models.Link]{},
		configs: map[models.ConfigTable]map[int64]settings.Document{},
	}
	for e, r := range d.rows {
		st.rows[e] = maps.Clone(r)
	}
	for e, l := range d.links {
		st.links[e] = maps.Clone(l)
	}
	for t, c := range d.configs {
		st.configs[t] = maps.Clone(c)
	}
	return st
}

func (d *fakeDest) ids(entity models.Entity) Set[int64] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := make(Set[int64])
	for id := range d.rows[entity] {
		s.Add(id)
	}
	return s
}

func keys[V any](m map[int64]V) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

var defaultGroup = models.TenantGroup{ID: 1, Name: "default", AuthToken: uuid.MustParse("6f1c7a52-4f1e-4a7e-9c59-4b3a9b3a0f11")}

func screenshot(hex string) string {
	return "2024/05/01/a/b/c/d/" + hex + ".jpg"
}
