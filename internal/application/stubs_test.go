package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

const (
	roomAID    = "3f6c2a1e-0b7d-4c55-9a43-2d1e5f6a7b01"
	roomBID    = "3f6c2a1e-0b7d-4c55-9a43-2d1e5f6a7b02"
	trainerID  = "8a2e4c6d-1f3b-4d7e-a9c1-5b7d9f1a3c01"
	groupID    = "c4d5e6f7-a8b9-4c0d-8e1f-203142536401"
	memberAID  = "e1f2a3b4-c5d6-4e7f-8a9b-0c1d2e3f4a01"
	memberBID  = "e1f2a3b4-c5d6-4e7f-8a9b-0c1d2e3f4a02"
	unknownRef = "00000000-0000-4000-8000-000000000000"
)

// sessionRepoStub is an in-memory SessionRepository. failOnCreate makes the
// n-th CreateSession call (1-based) fail with createErr.
type sessionRepoStub struct {
	mu           sync.Mutex
	sessions     map[string]Session
	order        []string
	nextID       int
	createCalls  int
	failOnCreate int
	createErr    error
	updateErr    error
	attendErr    error
	listErr      error
	getErr       error
	lastFilter   SessionFilter
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: map[string]Session{}}
}

func (s *sessionRepoStub) seed(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.order = append(s.order, session.ID)
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failOnCreate > 0 && s.createCalls == s.failOnCreate {
		return Session{}, s.createErr
	}
	s.nextID++
	session.ID = fmt.Sprintf("session-%d", s.nextID)
	if session.Attendance == nil {
		session.Attendance = map[string]json.RawMessage{}
	}
	for _, id := range session.ParticipantIDs {
		if _, ok := session.Attendance[id]; !ok {
			session.Attendance[id] = json.RawMessage(`{"present":true,"reason":null}`)
		}
	}
	s.sessions[session.ID] = session
	s.order = append(s.order, session.ID)
	return session, nil
}

func (s *sessionRepoStub) UpdateSession(ctx context.Context, session Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return Session{}, s.updateErr
	}
	if _, ok := s.sessions[session.ID]; !ok {
		return Session{}, ErrNotFound
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *sessionRepoStub) UpdateAttendance(ctx context.Context, id string, attendance map[string]json.RawMessage) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attendErr != nil {
		return Session{}, s.attendErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	session.Attendance = attendance
	s.sessions[id] = session
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []Session{}
	for _, id := range s.order {
		session, ok := s.sessions[id]
		if !ok {
			continue
		}
		if filter.From != nil && session.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && session.Date.After(*filter.To) {
			continue
		}
		if filter.GroupID != "" && session.GroupID != filter.GroupID {
			continue
		}
		out = append(out, session)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *sessionRepoStub) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *sessionRepoStub) stored(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// directoryStub implements every directory interface.
type directoryStub struct {
	rooms        map[string]Room
	trainers     map[string]Trainer
	groups       map[string]Group
	participants map[string]Participant
	err          error
}

func newDirectoryStub() *directoryStub {
	return &directoryStub{
		rooms: map[string]Room{
			roomAID: {ID: roomAID, DisplayName: "Бассейн"},
			roomBID: {ID: roomBID, DisplayName: "Зал"},
		},
		trainers: map[string]Trainer{trainerID: {ID: trainerID, DisplayName: "Иванова А."}},
		groups: map[string]Group{
			groupID: {ID: groupID, DisplayName: "Утро", MemberIDs: []string{memberBID, memberAID}},
		},
		participants: map[string]Participant{
			memberAID: {ID: memberAID, NameParts: []string{"Андреев", "Антон"}},
			memberBID: {ID: memberBID, NameParts: []string{"Борисова", " Белла "}, Ineligible: true},
		},
	}
}

func (d *directoryStub) GetRoom(ctx context.Context, id string) (Room, error) {
	if d.err != nil {
		return Room{}, d.err
	}
	room, ok := d.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	return room, nil
}

func (d *directoryStub) ListRooms(ctx context.Context) ([]Room, error) {
	if d.err != nil {
		return nil, d.err
	}
	rooms := make([]Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].DisplayName < rooms[j].DisplayName })
	return rooms, nil
}

func (d *directoryStub) GetTrainer(ctx context.Context, id string) (Trainer, error) {
	if d.err != nil {
		return Trainer{}, d.err
	}
	trainer, ok := d.trainers[id]
	if !ok {
		return Trainer{}, ErrNotFound
	}
	return trainer, nil
}

func (d *directoryStub) GetGroup(ctx context.Context, id string) (Group, error) {
	if d.err != nil {
		return Group{}, d.err
	}
	group, ok := d.groups[id]
	if !ok {
		return Group{}, ErrNotFound
	}
	return group, nil
}

func (d *directoryStub) GetParticipants(ctx context.Context, ids []string) ([]Participant, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := []Participant{}
	for _, id := range ids {
		if participant, ok := d.participants[id]; ok {
			out = append(out, participant)
		}
	}
	return out, nil
}
