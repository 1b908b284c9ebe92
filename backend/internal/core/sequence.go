package core

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// The comp defs of a type are ordered by a chain in the graph:
//
//	type --sequence_start(type, first)--> cd1 --sequence(predecessor, successor)--> cd2 --> ...

var (
	sequenceStartFilter = model.RelatedFilter{
		AssocTypeURI:      model.AssocSequenceStart,
		MyRoleTypeURI:     model.RoleType,
		OthersRoleTypeURI: model.RoleFirst,
	}
	successorFilter = model.RelatedFilter{
		AssocTypeURI:      model.AssocSequence,
		MyRoleTypeURI:     model.RolePredecessor,
		OthersRoleTypeURI: model.RoleSuccessor,
	}
)

// sequenceLink is one comp def in the chain together with the association leading to it
type sequenceLink struct {
	compDef *model.AssociationModel
	link    *model.AssociationModel
}

type sequenceChain []sequenceLink

func (c sequenceChain) indexOf(compDefID int64) int {
	for i, l := range c {
		if l.compDef.ID == compDefID {
			return i
		}
	}
	return -1
}

// walkSequence follows the chain from the type topic. It fails with a sequence
// corruption error on cycles, forks, foreign comp defs and comp defs left out of the chain.
func (u *unitOfWork) walkSequence(typeID int64, typeURI string) (sequenceChain, error) {
	all, err := u.compDefAssocs(typeID)
	if err != nil {
		return nil, err
	}
	owned := make(map[int64]bool, len(all))
	for _, a := range all {
		owned[a.ID] = true
	}

	starts, err := u.tx.FetchRelatedAssociations(typeID, sequenceStartFilter)
	if err != nil {
		return nil, err
	}
	switch {
	case len(starts) == 0 && len(all) == 0:
		return nil, nil
	case len(starts) == 0:
		return nil, dmxerrors.NewSequenceCorruption(typeURI, fmt.Sprintf("no sequence start but %d comp defs", len(all)))
	case len(starts) > 1:
		return nil, dmxerrors.NewSequenceCorruption(typeURI, fmt.Sprintf("%d sequence starts", len(starts)))
	}

	var chain sequenceChain
	visited := make(map[int64]bool)
	cur := starts[0]
	for {
		if !owned[cur.ID] {
			return nil, dmxerrors.NewSequenceCorruption(typeURI, fmt.Sprintf("association %d in the sequence is not a comp def of the type", cur.ID))
		}
		if visited[cur.ID] {
			return nil, dmxerrors.NewSequenceCorruption(typeURI, fmt.Sprintf("cycle at comp def %d", cur.ID))
		}
		visited[cur.ID] = true
		chain = append(chain, sequenceLink{compDef: &cur.AssociationModel, link: cur.RelatingAssoc})

		next, err := u.tx.FetchRelatedAssociations(cur.ID, successorFilter)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			break
		}
		if len(next) > 1 {
			return nil, dmxerrors.NewSequenceCorruption(typeURI, fmt.Sprintf("comp def %d has %d successors", cur.ID, len(next)))
		}
		cur = next[0]
	}

	if len(chain) != len(all) {
		return nil, dmxerrors.NewSequenceCorruption(typeURI, fmt.Sprintf("%d of %d comp defs are not in the sequence", len(all)-len(chain), len(all)))
	}
	return chain, nil
}

func (u *unitOfWork) storeSequenceStart(typeID, compDefID int64) error {
	return u.storeAssoc(model.AssocSequenceStart,
		model.NewTopicPlayer(typeID, model.RoleType),
		model.NewAssocPlayer(compDefID, model.RoleFirst),
	)
}

func (u *unitOfWork) storeSequenceLink(predecessorID, successorID int64) error {
	return u.storeAssoc(model.AssocSequence,
		model.NewAssocPlayer(predecessorID, model.RolePredecessor),
		model.NewAssocPlayer(successorID, model.RoleSuccessor),
	)
}

func (u *unitOfWork) deleteLink(id int64) error {
	if err := u.tx.DeleteAssociation(id); err != nil {
		return err
	}
	u.deleted[model.KindAssociation]++
	return nil
}

// insertIntoSequence splices compDef into the chain before position pos.
// A negative pos or one past the end appends.
func (u *unitOfWork) insertIntoSequence(typeID int64, chain sequenceChain, compDef *model.AssociationModel, pos int) error {
	n := len(chain)
	switch {
	case n == 0:
		return u.storeSequenceStart(typeID, compDef.ID)
	case pos < 0 || pos >= n:
		return u.storeSequenceLink(chain[n-1].compDef.ID, compDef.ID)
	case pos == 0:
		if err := u.deleteLink(chain[0].link.ID); err != nil {
			return err
		}
		if err := u.storeSequenceStart(typeID, compDef.ID); err != nil {
			return err
		}
		return u.storeSequenceLink(compDef.ID, chain[0].compDef.ID)
	default:
		if err := u.deleteLink(chain[pos].link.ID); err != nil {
			return err
		}
		if err := u.storeSequenceLink(chain[pos-1].compDef.ID, compDef.ID); err != nil {
			return err
		}
		return u.storeSequenceLink(compDef.ID, chain[pos].compDef.ID)
	}
}

// removeFromSequence unlinks chain[idx] and joins its neighbours
func (u *unitOfWork) removeFromSequence(typeID int64, chain sequenceChain, idx int) error {
	if err := u.deleteLink(chain[idx].link.ID); err != nil {
		return err
	}
	if idx+1 >= len(chain) {
		return nil
	}
	if err := u.deleteLink(chain[idx+1].link.ID); err != nil {
		return err
	}
	if idx == 0 {
		return u.storeSequenceStart(typeID, chain[idx+1].compDef.ID)
	}
	return u.storeSequenceLink(chain[idx-1].compDef.ID, chain[idx+1].compDef.ID)
}

// unlinkSequence deletes every link of the chain, leaving the comp defs in place
func (u *unitOfWork) unlinkSequence(chain sequenceChain) error {
	for _, l := range chain {
		if err := u.deleteLink(l.link.ID); err != nil {
			return err
		}
	}
	return nil
}

// linkSequence builds a chain over the given comp defs in order
func (u *unitOfWork) linkSequence(typeID int64, compDefIDs []int64) error {
	for i, id := range compDefIDs {
		var err error
		if i == 0 {
			err = u.storeSequenceStart(typeID, id)
		} else {
			err = u.storeSequenceLink(compDefIDs[i-1], id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Maintenance
// ============================================================================

// SequenceReport is the result of checking one type's sequence
type SequenceReport struct {
	TypeURI  string `json:"typeUri"`
	CompDefs int    `json:"compDefs"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the chain could be walked
func (r SequenceReport) OK() bool {
	return r.Error == ""
}

// checkSequence walks one type's chain
func (u *unitOfWork) checkSequence(topic *model.TopicModel) SequenceReport {
	report := SequenceReport{TypeURI: topic.URI}
	chain, err := u.walkSequence(topic.ID, topic.URI)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.CompDefs = len(chain)
	return report
}

// repairSequence rebuilds a type's chain: the walkable prefix of the old chain
// first, then comp defs that were cut off, in id order.
func (u *unitOfWork) repairSequence(typeURI string) ([]int64, error) {
	topic, err := u.fetchTypeTopic(typeURI)
	if err != nil {
		return nil, err
	}
	all, err := u.compDefAssocs(topic.ID)
	if err != nil {
		return nil, err
	}
	owned := make(map[int64]bool, len(all))
	for _, a := range all {
		owned[a.ID] = true
	}

	// collect every link touching the type or its comp defs
	links := make(map[int64]bool)
	starts, err := u.tx.FetchRelatedAssociations(topic.ID, sequenceStartFilter)
	if err != nil {
		return nil, err
	}
	for _, s := range starts {
		links[s.RelatingAssoc.ID] = true
	}
	successors := make(map[int64][]int64)
	for _, a := range all {
		next, err := u.tx.FetchRelatedAssociations(a.ID, successorFilter)
		if err != nil {
			return nil, err
		}
		for _, n := range next {
			links[n.RelatingAssoc.ID] = true
			if owned[n.ID] {
				successors[a.ID] = append(successors[a.ID], n.ID)
			}
		}
		prev, err := u.tx.FetchRelatedAssociations(a.ID, model.RelatedFilter{
			AssocTypeURI:      model.AssocSequence,
			MyRoleTypeURI:     model.RoleSuccessor,
			OthersRoleTypeURI: model.RolePredecessor,
		})
		if err != nil {
			return nil, err
		}
		for _, p := range prev {
			links[p.RelatingAssoc.ID] = true
		}
	}

	var order []int64
	visited := make(map[int64]bool)
	var first int64 = -1
	for _, s := range starts {
		if owned[s.ID] && (first < 0 || s.ID < first) {
			first = s.ID
		}
	}
	for cur := first; cur >= 0 && !visited[cur]; {
		visited[cur] = true
		order = append(order, cur)
		next := int64(-1)
		for _, id := range successors[cur] {
			if !visited[id] && (next < 0 || id < next) {
				next = id
			}
		}
		cur = next
	}
	for _, a := range all {
		if !visited[a.ID] {
			order = append(order, a.ID)
		}
	}

	linkIDs := make([]int64, 0, len(links))
	for id := range links {
		linkIDs = append(linkIDs, id)
	}
	sort.Slice(linkIDs, func(i, j int) bool { return linkIDs[i] < linkIDs[j] })
	for _, id := range linkIDs {
		if err := u.deleteLink(id); err != nil {
			return nil, err
		}
	}
	if err := u.linkSequence(topic.ID, order); err != nil {
		return nil, err
	}
	u.markDirty(typeURI)

	u.log.Info("Sequence repaired",
		zap.String("type_uri", typeURI),
		zap.Int("comp_defs", len(order)),
		zap.Int("links_replaced", len(linkIDs)),
	)
	return order, nil
}
