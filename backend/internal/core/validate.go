package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// validate runs the struct tag rules and converts the first failure
func (u *unitOfWork) validate(v interface{}) error {
	err := u.svc.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return dmxerrors.NewValidation(fe.Namespace(), fmt.Sprintf("failed on '%s' rule (value %v)", fe.Tag(), fe.Value()))
	}
	return dmxerrors.NewValidation("", err.Error())
}

func (u *unitOfWork) validateType(tm *model.TypeModel) error {
	if tm == nil {
		return dmxerrors.NewValidation("type", "missing")
	}
	if strings.TrimSpace(tm.URI) == "" {
		return dmxerrors.NewValidation("uri", "a type needs a URI")
	}
	if strings.Contains(tm.URI, "#") {
		return dmxerrors.NewValidation("uri", "type URIs must not contain '#'")
	}
	if err := u.validate(tm); err != nil {
		return err
	}
	if tm.IsSimple() && len(tm.CompDefs) > 0 {
		return dmxerrors.NewValidation("compDefs", "simple type "+tm.URI+" cannot have comp defs")
	}
	return nil
}

// validateCompDef checks a comp def against its parent type and the referenced types
func (u *unitOfWork) validateCompDef(parent *model.TypeModel, cd *model.CompDefModel) error {
	if err := u.validate(cd); err != nil {
		return err
	}
	if parent.IsSimple() {
		return dmxerrors.NewValidation("compDef", "simple type "+parent.URI+" cannot have comp defs")
	}
	child, err := u.fetchType(cd.ChildTypeURI)
	if err != nil {
		return err
	}
	if child.TypeURI != model.TopicType {
		return dmxerrors.NewValidation("childTypeUri", cd.ChildTypeURI+" is not a topic type")
	}
	if cd.CustomAssocTypeURI != "" {
		custom, err := u.fetchType(cd.CustomAssocTypeURI)
		if err != nil {
			return err
		}
		if !custom.IsAssocType() {
			return dmxerrors.NewValidation("customAssocTypeUri", cd.CustomAssocTypeURI+" is not an association type")
		}
	}
	return nil
}

// validateChildren checks a composite value against its type without touching the store.
// Every update runs it before the first write.
func (u *unitOfWork) validateChildren(objectID int64, children *model.ChildTopicsModel, typ *model.TypeModel, path string, update bool) error {
	if children.Len() == 0 {
		return nil
	}
	if typ.IsSimple() {
		return dmxerrors.NewValidation(path, "type "+typ.URI+" is simple and takes no child topics")
	}

	for _, key := range children.Keys() {
		field := path + "." + key
		cd, ok := typ.CompDef(key)
		if !ok {
			return dmxerrors.NewValidation(field, "type "+typ.URI+" has no comp def "+key)
		}
		entries := children.TopicsOrNil(key)
		if !cd.IsMany() && len(entries) > 1 {
			return dmxerrors.NewCardinalityViolation(objectID, key, fmt.Sprintf("%d values for a single-cardinality comp def", len(entries)))
		}
		if children.IsReplace(key) && !cd.IsMany() {
			return dmxerrors.NewValidation(field, "set semantics need a many-cardinality comp def")
		}

		childType, err := u.fetchType(cd.ChildTypeURI)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := u.validateEntry(e, cd, childType, field, update); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *unitOfWork) validateEntry(e *model.RelatedTopicModel, cd *model.CompDefModel, childType *model.TypeModel, field string, update bool) error {
	if e == nil {
		return dmxerrors.NewValidation(field, "nil child")
	}
	switch e.Ref {
	case model.RefDeletion:
		if !update {
			return dmxerrors.NewValidation(field, "deletion references are only valid in updates")
		}
		if e.ID <= 0 {
			return dmxerrors.NewValidation(field, "deletion reference without id")
		}
		return nil
	case model.RefByID, model.RefByURI:
		_, err := u.resolveRef(e, cd, field)
		return err
	}

	if e.TypeURI != "" && e.TypeURI != cd.ChildTypeURI {
		return dmxerrors.NewValidation(field, fmt.Sprintf("child of type %s under comp def of %s", e.TypeURI, cd.ChildTypeURI))
	}
	if e.IsStored() && !update {
		return dmxerrors.NewValidation(field, "a new object cannot contain stored children; use a reference")
	}
	if childType.IsSimple() {
		if e.ChildTopics.Len() > 0 {
			return dmxerrors.NewValidation(field, "simple child "+cd.ChildTypeURI+" takes no child topics")
		}
		return checkDataType(field, childType.DataTypeURI, e.Value)
	}
	return u.validateChildren(e.ID, e.ChildTopics, childType, field, update && e.IsStored())
}

// resolveRef returns the topic a reference entry points to, checking its type
func (u *unitOfWork) resolveRef(e *model.RelatedTopicModel, cd *model.CompDefModel, field string) (*model.TopicModel, error) {
	var (
		t   *model.TopicModel
		err error
	)
	switch {
	case e.Ref == model.RefByURI && e.URI != "":
		t, err = u.tx.FetchTopicByURI(e.URI)
	case e.Ref == model.RefByID && e.ID > 0:
		t, err = u.tx.FetchTopic(e.ID)
	default:
		return nil, dmxerrors.NewValidation(field, "malformed reference")
	}
	if err != nil {
		return nil, err
	}
	if t.TypeURI != cd.ChildTypeURI {
		return nil, dmxerrors.NewValidation(field, fmt.Sprintf("referenced topic %d is a %s, not a %s", t.ID, t.TypeURI, cd.ChildTypeURI))
	}
	return t, nil
}

func checkDataType(field, dataTypeURI string, v model.SimpleValue) error {
	switch dataTypeURI {
	case model.DataTypeNumber:
		switch v.Value().(type) {
		case int64, float64:
			return nil
		}
		return dmxerrors.NewValidation(field, "expected a number, got "+v.String())
	case model.DataTypeBoolean:
		if _, ok := v.Value().(bool); ok {
			return nil
		}
		return dmxerrors.NewValidation(field, "expected a boolean, got "+v.String())
	}
	return nil
}

// validateRoleType checks that a role type URI names a stored role type
func (u *unitOfWork) validateRoleType(field, uri string) error {
	if uri == "" {
		return dmxerrors.NewValidation(field, "missing role type")
	}
	t, err := u.tx.FetchTopicByURI(uri)
	if err != nil {
		if dmxerrors.IsNotFound(err) {
			return dmxerrors.NewValidation(field, "unknown role type "+uri)
		}
		return err
	}
	if t.TypeURI != model.RoleTypeType {
		return dmxerrors.NewValidation(field, uri+" is not a role type")
	}
	return nil
}
