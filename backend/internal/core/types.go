package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// ============================================================================
// Type queries
// ============================================================================

// GetTopicType returns a materialized topic type
func (s *Service) GetTopicType(ctx context.Context, uri string) (*model.TypeModel, error) {
	return s.getType(ctx, uri, model.TopicType)
}

// GetAssocType returns a materialized association type
func (s *Service) GetAssocType(ctx context.Context, uri string) (*model.TypeModel, error) {
	return s.getType(ctx, uri, model.AssocType)
}

func (s *Service) getType(ctx context.Context, uri, kind string) (*model.TypeModel, error) {
	var out *model.TypeModel
	_, err := s.run(ctx, "get_type", func(u *unitOfWork) error {
		typ, err := u.fetchType(uri)
		if err != nil {
			return err
		}
		if typ.TypeURI != kind {
			return dmxerrors.NewNotFound(kindName(kind), uri)
		}
		out = typ
		return nil
	})
	return out, err
}

// GetAllTopicTypes returns every topic type in id order
func (s *Service) GetAllTopicTypes(ctx context.Context) ([]*model.TypeModel, error) {
	return s.getAllTypes(ctx, model.TopicType)
}

// GetAllAssocTypes returns every association type in id order
func (s *Service) GetAllAssocTypes(ctx context.Context) ([]*model.TypeModel, error) {
	return s.getAllTypes(ctx, model.AssocType)
}

func (s *Service) getAllTypes(ctx context.Context, kind string) ([]*model.TypeModel, error) {
	var out []*model.TypeModel
	_, err := s.run(ctx, "get_types", func(u *unitOfWork) error {
		topics, err := u.tx.FetchTopicsByType(kind)
		if err != nil {
			return err
		}
		for _, t := range topics {
			typ, err := u.fetchType(t.URI)
			if err != nil {
				return err
			}
			out = append(out, typ)
		}
		return nil
	})
	return out, err
}

// TypeURIs lists the URIs of all topic and association types
func (s *Service) TypeURIs(ctx context.Context) ([]string, error) {
	var uris []string
	_, err := s.run(ctx, "list_types", func(u *unitOfWork) error {
		for _, kind := range []string{model.TopicType, model.AssocType} {
			topics, err := u.tx.FetchTopicsByType(kind)
			if err != nil {
				return err
			}
			for _, t := range topics {
				uris = append(uris, t.URI)
			}
		}
		return nil
	})
	return uris, err
}

// WarmTypeCache loads every type into the cache, a few at a time
func (s *Service) WarmTypeCache(ctx context.Context) error {
	uris, err := s.TypeURIs(ctx)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, uri := range uris {
		uri := uri
		g.Go(func() error {
			_, err := s.run(ctx, "warm_type", func(u *unitOfWork) error {
				_, err := u.fetchType(uri)
				return err
			})
			return err
		})
	}
	return g.Wait()
}

// ============================================================================
// Type mutations
// ============================================================================

// CreateTopicType stores a topic type and its comp defs
func (s *Service) CreateTopicType(ctx context.Context, tm *model.TypeModel) (*model.TypeModel, Directives, error) {
	return s.createType(ctx, tm, model.TopicType)
}

// CreateAssocType stores an association type and its comp defs
func (s *Service) CreateAssocType(ctx context.Context, tm *model.TypeModel) (*model.TypeModel, Directives, error) {
	return s.createType(ctx, tm, model.AssocType)
}

func (s *Service) createType(ctx context.Context, tm *model.TypeModel, kind string) (*model.TypeModel, Directives, error) {
	var out *model.TypeModel
	d, err := s.run(ctx, "create_type", func(u *unitOfWork) error {
		var err error
		out, err = u.createType(tm, kind)
		return err
	})
	return out, d, err
}

// AddCompDef inserts a comp def at pos; a negative pos appends
func (s *Service) AddCompDef(ctx context.Context, typeURI string, cd *model.CompDefModel, pos int) (*model.TypeModel, Directives, error) {
	return s.mutateType(ctx, "add_comp_def", typeURI, func(u *unitOfWork) error {
		return u.addCompDef(typeURI, cd.Clone(), pos)
	})
}

// RemoveCompDef removes a comp def and the instance-level associations it governs
func (s *Service) RemoveCompDef(ctx context.Context, typeURI, compDefURI string) (*model.TypeModel, Directives, error) {
	return s.mutateType(ctx, "remove_comp_def", typeURI, func(u *unitOfWork) error {
		return u.removeCompDef(typeURI, compDefURI)
	})
}

// ReorderCompDefs puts all comp defs of a type in the given order
func (s *Service) ReorderCompDefs(ctx context.Context, typeURI string, compDefURIs []string) (*model.TypeModel, Directives, error) {
	return s.mutateType(ctx, "reorder_comp_defs", typeURI, func(u *unitOfWork) error {
		return u.reorderCompDefs(typeURI, compDefURIs)
	})
}

// MoveCompDef moves one comp def to pos, keeping the others in order
func (s *Service) MoveCompDef(ctx context.Context, typeURI, compDefURI string, pos int) (*model.TypeModel, Directives, error) {
	return s.mutateType(ctx, "move_comp_def", typeURI, func(u *unitOfWork) error {
		typ, err := u.fetchType(typeURI)
		if err != nil {
			return err
		}
		if _, ok := typ.CompDef(compDefURI); !ok {
			return dmxerrors.NewNotFound("comp def", typeURI+"/"+compDefURI)
		}
		return u.reorderCompDefs(typeURI, moveTo(typ.CompDefURIs(), compDefURI, pos))
	})
}

// UpdateCompDef changes cardinalities or the view config of a comp def
func (s *Service) UpdateCompDef(ctx context.Context, typeURI string, cd *model.CompDefModel) (*model.TypeModel, Directives, error) {
	return s.mutateType(ctx, "update_comp_def", typeURI, func(u *unitOfWork) error {
		return u.updateCompDef(typeURI, cd.Clone())
	})
}

// UpdateTypeViewConfig replaces the view config of a type
func (s *Service) UpdateTypeViewConfig(ctx context.Context, typeURI string, vc *model.ViewConfigModel) (*model.TypeModel, Directives, error) {
	return s.mutateType(ctx, "update_view_config", typeURI, func(u *unitOfWork) error {
		typ, err := u.fetchType(typeURI)
		if err != nil {
			return err
		}
		if err := u.replaceViewConfig(typ.ID, vc); err != nil {
			return err
		}
		u.markDirty(typeURI)
		return nil
	})
}

// mutateType runs fn and returns the type as it is after the mutation
func (s *Service) mutateType(ctx context.Context, op, typeURI string, fn func(u *unitOfWork) error) (*model.TypeModel, Directives, error) {
	var out *model.TypeModel
	d, err := s.run(ctx, op, func(u *unitOfWork) error {
		if err := fn(u); err != nil {
			return err
		}
		var err error
		if out, err = u.fetchType(typeURI); err != nil {
			return err
		}
		u.typeDirective(out.TypeURI, false, out.ID, typeURI)
		return nil
	})
	return out, d, err
}

// DeleteTopicType deletes a topic type without instances
func (s *Service) DeleteTopicType(ctx context.Context, uri string) (Directives, error) {
	return s.run(ctx, "delete_type", func(u *unitOfWork) error {
		return u.deleteType(uri, model.TopicType)
	})
}

// DeleteAssocType deletes an association type without instances
func (s *Service) DeleteAssocType(ctx context.Context, uri string) (Directives, error) {
	return s.run(ctx, "delete_type", func(u *unitOfWork) error {
		return u.deleteType(uri, model.AssocType)
	})
}

// ============================================================================
// Sequence maintenance
// ============================================================================

// CheckSequences walks the comp def chain of every type
func (s *Service) CheckSequences(ctx context.Context) ([]SequenceReport, error) {
	var reports []SequenceReport
	_, err := s.run(ctx, "check_sequences", func(u *unitOfWork) error {
		for _, kind := range []string{model.TopicType, model.AssocType} {
			topics, err := u.tx.FetchTopicsByType(kind)
			if err != nil {
				return err
			}
			for _, t := range topics {
				reports = append(reports, u.checkSequence(t))
			}
		}
		return nil
	})
	return reports, err
}

// RepairSequence rebuilds a broken comp def chain and returns the repaired type
func (s *Service) RepairSequence(ctx context.Context, typeURI string) (*model.TypeModel, Directives, error) {
	return s.mutateType(ctx, "repair_sequence", typeURI, func(u *unitOfWork) error {
		_, err := u.repairSequence(typeURI)
		return err
	})
}

func moveTo(order []string, uri string, pos int) []string {
	rest := make([]string, 0, len(order))
	for _, o := range order {
		if o != uri {
			rest = append(rest, o)
		}
	}
	if pos < 0 || pos > len(rest) {
		pos = len(rest)
	}
	out := make([]string, 0, len(order))
	out = append(out, rest[:pos]...)
	out = append(out, uri)
	return append(out, rest[pos:]...)
}
