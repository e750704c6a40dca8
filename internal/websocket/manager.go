package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/rajivgeraev/bazar-api/internal/messaging"
)

// Manager представляет реестр присутствия: отображение подключенных
// пользователей на их активные WebSocket-соединения. Состояние живет
// только в памяти процесса и восстанавливается с нуля после рестарта.
type Manager struct {
	clients      map[uuid.UUID]*Client
	clientsMutex sync.RWMutex
	userClients  map[string]map[uuid.UUID]bool // userID -> map[clientID]bool
	userMutex    sync.RWMutex
}

// NewManager создает новый экземпляр Manager
func NewManager() *Manager {
	return &Manager{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]bool),
	}
}

// AddClient регистрирует нового клиента
func (m *Manager) AddClient(client *Client) {
	m.clientsMutex.Lock()
	m.clients[client.ID] = client
	m.clientsMutex.Unlock()

	// Связываем клиент с пользователем
	m.userMutex.Lock()
	if _, exists := m.userClients[client.UserID]; !exists {
		m.userClients[client.UserID] = make(map[uuid.UUID]bool)
	}
	m.userClients[client.UserID][client.ID] = true
	m.userMutex.Unlock()

	log.Printf("WebSocket клиент %s подключен для пользователя %s", client.ID, client.UserID)
}

// RemoveClient удаляет клиента и возвращает true, если это было
// последнее соединение пользователя
func (m *Manager) RemoveClient(clientID uuid.UUID) bool {
	m.clientsMutex.RLock()
	client, exists := m.clients[clientID]
	m.clientsMutex.RUnlock()

	if !exists {
		return false
	}

	userID := client.UserID
	wasLast := false

	// Удаляем клиент из связи с пользователем
	m.userMutex.Lock()
	if clients, ok := m.userClients[userID]; ok {
		delete(clients, clientID)
		// Если это был последний клиент пользователя, удаляем запись пользователя
		if len(clients) == 0 {
			delete(m.userClients, userID)
			wasLast = true
		}
	}
	m.userMutex.Unlock()

	// Удаляем клиент из общего списка
	m.clientsMutex.Lock()
	delete(m.clients, clientID)
	m.clientsMutex.Unlock()

	log.Printf("WebSocket клиент %s отключен для пользователя %s", clientID, userID)
	return wasLast
}

// IsOnline проверяет, есть ли у пользователя активное соединение
func (m *Manager) IsOnline(userID string) bool {
	m.userMutex.RLock()
	defer m.userMutex.RUnlock()
	return len(m.userClients[userID]) > 0
}

// SendToUser отправляет событие всем соединениям конкретного пользователя.
// Если пользователь не подключен, событие молча отбрасывается —
// доставка best-effort, источником истины остается база.
func (m *Manager) SendToUser(userID string, event messaging.Event) {
	if userID == "" {
		return
	}

	m.userMutex.RLock()
	clientIDs := make([]uuid.UUID, 0, len(m.userClients[userID]))
	for clientID := range m.userClients[userID] {
		clientIDs = append(clientIDs, clientID)
	}
	m.userMutex.RUnlock()

	if len(clientIDs) == 0 {
		return
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("Ошибка сериализации события: %v", err)
		return
	}

	for _, clientID := range clientIDs {
		m.clientsMutex.RLock()
		client, exists := m.clients[clientID]
		m.clientsMutex.RUnlock()

		if !exists {
			continue
		}
		m.deliver(client, eventJSON)
	}
}

// Broadcast отправляет событие всем подключенным клиентам,
// кроме соединений пользователя excludeUserID
func (m *Manager) Broadcast(event messaging.Event, excludeUserID string) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("Ошибка сериализации события: %v", err)
		return
	}

	m.clientsMutex.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		if client.UserID == excludeUserID {
			continue
		}
		clients = append(clients, client)
	}
	m.clientsMutex.RUnlock()

	for _, client := range clients {
		m.deliver(client, eventJSON)
	}
}

// deliver кладет событие в очередь отправки клиента без блокировки.
// Переполненная очередь означает слишком медленного клиента — соединение закрывается.
// Снятие клиента с учета здесь не выполняется: это делает завершение readPump,
// иначе переход последнего соединения в оффлайн терялся бы.
func (m *Manager) deliver(client *Client, eventJSON []byte) {
	select {
	case client.send <- eventJSON:
		// Событие добавлено в очередь отправки
	default:
		log.Printf("Очередь отправки клиента %s переполнена, закрываем соединение", client.ID)
		client.Close()
	}
}

// Shutdown корректно завершает работу менеджера WebSocket
func (m *Manager) Shutdown() {
	m.clientsMutex.Lock()
	for _, client := range m.clients {
		client.Close()
	}
	m.clients = make(map[uuid.UUID]*Client)
	m.clientsMutex.Unlock()

	m.userMutex.Lock()
	m.userClients = make(map[string]map[uuid.UUID]bool)
	m.userMutex.Unlock()
}
