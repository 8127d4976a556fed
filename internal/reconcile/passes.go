package reconcile

import (
	"cmp"
	"context"
	"errors"

	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/settings"
)

func written(ok bool) outcome {
	if ok {
		return outcomeInserted
	}
	return outcomeConflict
}

func compareLinks(a, b models.Link) int {
	if c := cmp.Compare(a.Owner, b.Owner); c != 0 {
		return c
	}
	return cmp.Compare(a.Descriptor, b.Descriptor)
}

func (e *Engine) idPass(sc *SyncContext, entity models.Entity, insert func(context.Context, int64) (outcome, error)) pass[int64] {
	return pass[int64]{
		entity:  entity,
		compare: cmp.Compare[int64],
		sourceKeys: func(ctx context.Context) ([]int64, error) {
			return sc.Source.IDs(ctx, entity)
		},
		destKeys: func(ctx context.Context) ([]int64, error) {
			return sc.Dest.IDs(ctx, sc.Group.ID, entity)
		},
		remove: func(ctx context.Context, id int64) error {
			return sc.Dest.Delete(ctx, entity, id)
		},
		insert: insert,
		id:     func(id int64) int64 { return id },
	}
}

func (e *Engine) runIDPass(ctx context.Context, sc *SyncContext, r *RunReport, p pass[int64]) error {
	res, err := runPass(ctx, e, sc.Group, p)
	if err != nil {
		return err
	}
	sc.setSnapshot(p.entity, res.present)
	r.Passes = append(r.Passes, res.report)
	return nil
}

func (e *Engine) vanished(entity models.Entity, id int64) outcome {
	e.log.Warn("source row vanished, skipped", "entity", entity, "id", id)
	return outcomeSkipped
}

func (e *Engine) logDropped(entity models.Entity, id int64, dropped []error) {
	for _, err := range dropped {
		e.log.Debug("parameter dropped", "entity", entity, "id", id, "error", err)
	}
}

func (e *Engine) syncStreams(ctx context.Context, sc *SyncContext, r *RunReport) error {
	p := e.idPass(sc, models.EntityStream, func(ctx context.Context, id int64) (outcome, error) {
		s, found, err := sc.Source.Stream(ctx, id)
		if err != nil {
			return 0, queryError("fetch", models.EntityStream, err)
		}
		if !found {
			return e.vanished(models.EntityStream, id), nil
		}
		doc, dropped := settings.StreamDocument(s.Settings, s.Region)
		e.logDropped(models.EntityStream, id, dropped)

		ok, err := sc.Dest.InsertStream(ctx, sc.Group.ID, s, doc)
		return written(ok), err
	})
	return e.runIDPass(ctx, sc, r, p)
}

func (e *Engine) syncDescriptors(ctx context.Context, sc *SyncContext, r *RunReport) error {
	p := e.idPass(sc, models.EntityDescriptor, func(ctx context.Context, id int64) (outcome, error) {
		d, found, err := sc.Source.Descriptor(ctx, id)
		if err != nil {
			return 0, queryError("fetch", models.EntityDescriptor, err)
		}
		if !found {
			return e.vanished(models.EntityDescriptor, id), nil
		}
		d.DateLast = d.DateStart
		d.LastUpdated = d.DateStart

		ok, err := sc.Dest.InsertDescriptor(ctx, sc.Group.ID, d)
		return written(ok), err
	})
	return e.runIDPass(ctx, sc, r, p)
}

func (e *Engine) syncSpecialGroups(ctx context.Context, sc *SyncContext, r *RunReport) error {
	p := e.idPass(sc, models.EntitySpecialGroup, func(ctx context.Context, id int64) (outcome, error) {
		g, found, err := sc.Source.SpecialGroup(ctx, id)
		if err != nil {
			return 0, queryError("fetch", models.EntitySpecialGroup, err)
		}
		if !found {
			return e.vanished(models.EntitySpecialGroup, id), nil
		}
		ok, err := sc.Dest.InsertSpecialGroup(ctx, sc.Group.ID, g)
		return written(ok), err
	})
	return e.runIDPass(ctx, sc, r, p)
}

// linkPass inserts a link only when both endpoints are present after the
// owner and descriptor passes.
func (e *Engine) linkPass(sc *SyncContext, entity, owner models.Entity) pass[models.Link] {
	return pass[models.Link]{
		entity:  entity,
		compare: compareLinks,
		sourceKeys: func(ctx context.Context) ([]models.Link, error) {
			return sc.Source.Links(ctx, entity)
		},
		destKeys: func(ctx context.Context) ([]models.Link, error) {
			return sc.Dest.Links(ctx, sc.Group.ID, entity)
		},
		remove: func(ctx context.Context, l models.Link) error {
			return sc.Dest.DeleteLink(ctx, entity, l)
		},
		insert: func(ctx context.Context, l models.Link) (outcome, error) {
			if !sc.Snapshot(owner).Has(l.Owner) || !sc.Snapshot(models.EntityDescriptor).Has(l.Descriptor) {
				e.log.Debug("link endpoint missing, skipped", "entity", entity, "owner", l.Owner, "descriptor", l.Descriptor)
				return outcomeSkipped, nil
			}
			ok, err := sc.Dest.InsertLink(ctx, entity, l)
			return written(ok), err
		},
	}
}

func (e *Engine) runLinkPass(ctx context.Context, sc *SyncContext, r *RunReport, p pass[models.Link]) error {
	res, err := runPass(ctx, e, sc.Group, p)
	if err != nil {
		return err
	}
	r.Passes = append(r.Passes, res.report)
	return nil
}

func (e *Engine) syncStreamLinks(ctx context.Context, sc *SyncContext, r *RunReport) error {
	return e.runLinkPass(ctx, sc, r, e.linkPass(sc, models.EntityStreamLink, models.EntityStream))
}

func (e *Engine) syncSpecialGroupLinks(ctx context.Context, sc *SyncContext, r *RunReport) error {
	return e.runLinkPass(ctx, sc, r, e.linkPass(sc, models.EntitySpecialGroupLink, models.EntitySpecialGroup))
}

func (e *Engine) syncConfig(ctx context.Context, sc *SyncContext, r *RunReport) error {
	params, err := sc.Source.CommonSettings(ctx)
	if err != nil {
		return queryError("read common settings", "", err)
	}
	common, commonDropped := settings.Common.Transcode(params)
	stream, streamDropped := settings.Stream.Transcode(params)

	for _, t := range []struct {
		table   models.ConfigTable
		doc     settings.Document
		dropped []error
	}{
		{models.ConfigCommon, common, commonDropped},
		{models.ConfigDefaultStream, stream, streamDropped},
	} {
		for _, err := range t.dropped {
			e.log.Debug("parameter dropped", "table", t.table, "error", err)
		}
		base, err := sc.Dest.LoadConfig(ctx, t.table, sc.Group.ID)
		if err != nil {
			return queryError("load "+string(t.table), "", err)
		}
		st := settings.Diff(base, t.doc)
		rep := ConfigReport{
			Table:   t.table,
			Added:   st.Added,
			Changed: st.Changed,
			Kept:    st.Kept,
			Dropped: len(t.dropped),
		}
		if !e.opts.DryRun {
			if err := sc.Dest.StoreConfig(ctx, t.table, sc.Group.ID, settings.Merge(base, t.doc)); err != nil {
				return queryError("store "+string(t.table), "", err)
			}
		}
		e.log.Info("config merged",
			"table", t.table,
			"added", rep.Added,
			"changed", rep.Changed,
			"kept", rep.Kept,
			"dropped", rep.Dropped,
			"dry_run", e.opts.DryRun,
		)
		r.Config = append(r.Config, rep)
	}
	return nil
}

// syncFaceLogs copies recognition history. Logs are never deleted from the
// destination.
func (e *Engine) syncFaceLogs(ctx context.Context, sc *SyncContext, r *RunReport) error {
	streams := sc.Snapshot(models.EntityStream)
	descriptors := sc.Snapshot(models.EntityDescriptor)

	p := e.idPass(sc, models.EntityFaceLog, func(ctx context.Context, id int64) (outcome, error) {
		l, found, err := sc.Source.FaceLog(ctx, id)
		if err != nil {
			return 0, queryError("fetch", models.EntityFaceLog, err)
		}
		if !found {
			return e.vanished(models.EntityFaceLog, id), nil
		}
		if !streams.Has(l.StreamID) {
			e.log.Debug("log stream missing, skipped", "id", id, "stream", l.StreamID)
			return outcomeSkipped, nil
		}
		if l.DescriptorID != nil && !descriptors.Has(*l.DescriptorID) {
			l.DescriptorID = nil
		}

		url, logUUID, err := DeriveLogFields(e.opts.ScreenshotURLPrefix, sc.Group, l.Screenshot)
		if err != nil {
			if errors.Is(err, ErrMalformedFilename) {
				e.log.Warn("log skipped", "id", id, "error", err)
				return outcomeSkipped, nil
			}
			return 0, err
		}
		l.ScreenshotURL, l.UUID = url, logUUID

		ok, err := sc.Dest.InsertFaceLog(ctx, l)
		return written(ok), err
	})
	p.appendOnly = true
	return e.runIDPass(ctx, sc, r, p)
}

func (e *Engine) replicateBlobs(ctx context.Context, sc *SyncContext, r *RunReport) error {
	switch {
	case e.blobs == nil:
		e.log.Info("blob replication not configured")
		return nil
	case e.opts.DryRun:
		e.log.Info("blob replication skipped, dry run")
		return nil
	}

	reports, err := e.blobs.Replicate(ctx, sc.Group)
	r.Blobs = reports
	for _, b := range reports {
		e.log.Info("blobs replicated",
			"kind", b.Kind,
			"target", b.Target,
			"copied", b.Copied,
			"skipped", b.Skipped,
			"bytes", b.Bytes,
			"failed", b.Failed,
		)
	}
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var fe *FilesystemError
	if errors.As(err, &fe) {
		e.log.Warn("blob replication incomplete", "error", err)
		return nil
	}
	return err
}
