package schema

import (
	"context"

	"go.uber.org/zap"

	"dmx-platform/backend/internal/core"
	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
	"dmx-platform/backend/pkg/logger"
)

// TypeService is the part of core.Service the installer needs
type TypeService interface {
	GetTopicType(ctx context.Context, uri string) (*model.TypeModel, error)
	GetAssocType(ctx context.Context, uri string) (*model.TypeModel, error)
	CreateTopicType(ctx context.Context, tm *model.TypeModel) (*model.TypeModel, core.Directives, error)
	CreateAssocType(ctx context.Context, tm *model.TypeModel) (*model.TypeModel, core.Directives, error)
	AddCompDef(ctx context.Context, typeURI string, cd *model.CompDefModel, pos int) (*model.TypeModel, core.Directives, error)
}

// Result lists what an Install call changed
type Result struct {
	Created   []string `json:"created"`
	Extended  []string `json:"extended"`
	Unchanged []string `json:"unchanged"`
}

// Changed reports whether anything was written
func (r *Result) Changed() bool {
	return len(r.Created) > 0 || len(r.Extended) > 0
}

type entry struct {
	def  TypeDef
	kind string
}

// Install creates the missing types of doc, children before parents. Types that
// already exist get their missing comp defs appended; existing comp defs are left alone.
// Every type is written in its own transaction.
func Install(ctx context.Context, svc TypeService, doc *Document) (*Result, error) {
	log := logger.Named("schema")

	order, err := installOrder(doc)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, e := range order {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tm, err := e.def.TypeModel(e.kind)
		if err != nil {
			return res, err
		}

		existing, err := getType(ctx, svc, e.kind, tm.URI)
		switch {
		case dmxerrors.IsNotFound(err):
			if _, _, err := createType(ctx, svc, e.kind, tm); err != nil {
				return res, err
			}
			res.Created = append(res.Created, tm.URI)
			log.Info("Schema type installed", zap.String("type_uri", tm.URI))
			continue
		case err != nil:
			return res, err
		}

		added := 0
		for _, cd := range tm.CompDefs {
			if _, ok := existing.CompDef(cd.URI()); ok {
				continue
			}
			if _, _, err := svc.AddCompDef(ctx, tm.URI, cd, -1); err != nil {
				return res, err
			}
			added++
			log.Info("Comp def added",
				zap.String("type_uri", tm.URI),
				zap.String("comp_def_uri", cd.URI()),
			)
		}
		if added > 0 {
			res.Extended = append(res.Extended, tm.URI)
		} else {
			res.Unchanged = append(res.Unchanged, tm.URI)
		}
	}
	return res, nil
}

func getType(ctx context.Context, svc TypeService, kind, uri string) (*model.TypeModel, error) {
	if kind == model.AssocType {
		return svc.GetAssocType(ctx, uri)
	}
	return svc.GetTopicType(ctx, uri)
}

func createType(ctx context.Context, svc TypeService, kind string, tm *model.TypeModel) (*model.TypeModel, core.Directives, error) {
	if kind == model.AssocType {
		return svc.CreateAssocType(ctx, tm)
	}
	return svc.CreateTopicType(ctx, tm)
}

// installOrder sorts the document's types so that every comp def child and custom
// association type declared in the same document comes before the type using it.
// Document order is kept otherwise.
func installOrder(doc *Document) ([]entry, error) {
	byURI := make(map[string]entry)
	var all []entry
	for _, def := range doc.TopicTypes {
		e := entry{def: def, kind: model.TopicType}
		byURI[def.URI] = e
		all = append(all, e)
	}
	for _, def := range doc.AssocTypes {
		e := entry{def: def, kind: model.AssocType}
		byURI[def.URI] = e
		all = append(all, e)
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var out []entry
	var path []string

	var visit func(e entry) error
	visit = func(e entry) error {
		uri := e.def.URI
		switch state[uri] {
		case done:
			return nil
		case visiting:
			cycle := append([]string{}, path[indexOf(path, uri):]...)
			return dmxerrors.NewCyclicTypeDefinition(uri, append(cycle, uri))
		}
		state[uri] = visiting
		path = append(path, uri)
		for _, dep := range e.def.dependencies() {
			if d, ok := byURI[dep]; ok {
				if err := visit(d); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[uri] = done
		out = append(out, e)
		return nil
	}

	for _, e := range all {
		if err := visit(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (def TypeDef) dependencies() []string {
	var deps []string
	for _, cd := range def.CompDefs {
		deps = append(deps, cd.Child)
		if cd.CustomAssocType != "" {
			deps = append(deps, cd.CustomAssocType)
		}
	}
	return deps
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return 0
}
