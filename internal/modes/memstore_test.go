package modes

import (
	"context"
	"sort"
	"sync"

	"github.com/m3rciful/soulbot/internal/store"
)

type memStore struct {
	mu         sync.Mutex
	nextID     int64
	profiles   map[int64]store.Profile
	likes      []store.Like
	nextLike   int64
	categories []store.Category
	userCats   map[int64][]int64
}

func newMemStore(categories ...string) *memStore {
	m := &memStore{
		profiles: make(map[int64]store.Profile),
		userCats: make(map[int64][]int64),
	}
	for i, title := range categories {
		m.categories = append(m.categories, store.Category{ID: int64(i + 1), Title: title})
	}
	return m
}

func (m *memStore) UserExists(_ context.Context, chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.profiles[chatID]
	return ok, nil
}

func (m *memStore) UpsertProfile(_ context.Context, p store.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.profiles[p.ChatID]; ok {
		p.ID = old.ID
	} else {
		m.nextID++
		p.ID = m.nextID
	}
	m.profiles[p.ChatID] = p
	return nil
}

func (m *memStore) SaveProfile(ctx context.Context, p store.Profile, ids []int64) error {
	if err := m.UpsertProfile(ctx, p); err != nil {
		return err
	}
	return m.SetUserCategories(ctx, p.ChatID, ids)
}

func (m *memStore) GetProfile(_ context.Context, chatID int64) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[chatID]
	if !ok {
		return store.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memStore) NextProfileAfter(_ context.Context, q store.ProfileQuery) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []store.Profile
	for _, p := range m.profiles {
		if p.ID > q.After && p.ChatID != q.Requester {
			if q.SharedCategories && !m.shares(p.ChatID, q.Requester) {
				continue
			}
			all = append(all, p)
		}
	}
	if len(all) == 0 {
		return store.Profile{}, store.ErrNotFound
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all[0], nil
}

func (m *memStore) shares(a, b int64) bool {
	for _, x := range m.userCats[a] {
		for _, y := range m.userCats[b] {
			if x == y {
				return true
			}
		}
	}
	return false
}

func (m *memStore) AddLike(_ context.Context, from, to int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.likes {
		if l.FromChatID == from && l.ToChatID == to {
			return false, nil
		}
	}
	m.nextLike++
	m.likes = append(m.likes, store.Like{ID: m.nextLike, FromChatID: from, ToChatID: to})
	return true, nil
}

func (m *memStore) OldestPendingLike(_ context.Context, chatID int64) (store.Like, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.likes {
		if l.ToChatID == chatID {
			return l, nil
		}
	}
	return store.Like{}, store.ErrNotFound
}

func (m *memStore) RemoveLike(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.likes {
		if l.ID == id {
			m.likes = append(m.likes[:i], m.likes[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) ListCategories(context.Context) ([]store.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Category(nil), m.categories...), nil
}

func (m *memStore) SetUserCategories(_ context.Context, chatID int64, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userCats[chatID] = append([]int64(nil), ids...)
	return nil
}

func (m *memStore) UserCategories(_ context.Context, chatID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, id := range m.userCats[chatID] {
		for _, c := range m.categories {
			if c.ID == id {
				out = append(out, c.Title)
			}
		}
	}
	return out, nil
}

func (m *memStore) likeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.likes)
}

type notification struct {
	kind   string
	chatID int64
	from   store.Profile
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyLike(_ context.Context, chatID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{kind: "like", chatID: chatID})
	return nil
}

func (n *recordingNotifier) NotifyMatch(_ context.Context, chatID int64, p store.Profile) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{kind: "match", chatID: chatID, from: p})
	return nil
}
