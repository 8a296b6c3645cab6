package workflow

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"LiveDock/internal/modules/reception/domain/entity"
	userEntity "LiveDock/internal/modules/user/domain/entity"
)

type State string

type Event string

// PendingConfirmationMarker 待确认状态的命名约定
const PendingConfirmationMarker = "PENDIENTE_DE_CONFIRMACION"

const (
	LogisticaPendienteDeConfirmacionIngreso        State = "LOGISTICA_PENDIENTE_DE_CONFIRMACION_INGRESO"
	LogisticaPendienteDeAutorizacion               State = "LOGISTICA_PENDIENTE_DE_AUTORIZACION"
	CalidadPendienteDeConfirmacionDeAnalisis       State = "CALIDAD_PENDIENTE_DE_CONFIRMACION_DE_ANALISIS"
	CalidadProcesando                              State = "CALIDAD_PROCESANDO"
	FinalizoProcesoPorRechazo                      State = "FINALIZO_PROCESO_POR_RECHAZO"
	ProduccionPendienteDeConfirmacionParaDescarga  State = "PRODUCCION_PENDIENTE_DE_CONFIRMACION_PARA_DESCARGA"
	ProduccionPendienteDeDescarga                  State = "PRODUCCION_PENDIENTE_DE_DESCARGA"
	ProduccionDescargando                          State = "PRODUCCION_DESCARGANDO"
	LogisticaPendienteDeConfirmacionCapturaPesoSAP State = "LOGISTICA_PENDIENTE_DE_CONFIRMACION_CAPTURA_PESO_SAP"
	LogisticaPendienteDeCapturaPesoSAP             State = "LOGISTICA_PENDIENTE_DE_CAPTURA_PESO_SAP"
	CalidadPendienteDeConfirmacionLiberacionSAP    State = "CALIDAD_PENDIENTE_DE_CONFIRMACION_LIBERACION_SAP"
	CalidadPendienteLiberacionEnSAP                State = "CALIDAD_PENDIENTE_LIBERACION_EN_SAP"
	FinalizoProceso                                State = "FINALIZO_PROCESO"
)

const (
	VigilanciaRegistraIngreso                 Event = "VIGILANCIA_REGISTRA_INGRESO"
	LogisticaConfirmaPendienteDeIngreso       Event = "LOGISTICA_CONFIRMA_PENDIENTE_DE_INGRESO"
	LogisticaAutorizaIngreso                  Event = "LOGISTICA_AUTORIZA_INGRESO"
	CalidadConfirmaPendienteDeAnalisis        Event = "CALIDAD_CONFIRMA_PENDIENTE_DE_ANALISIS"
	CalidadRechazaMaterial                    Event = "CALIDAD_RECHAZA_MATERIAL"
	CalidadApruebaMaterial                    Event = "CALIDAD_APRUEBA_MATERIAL"
	ProduccionConfirmaPendienteDeDescarga     Event = "PRODUCCION_CONFIRMA_PENDIENTE_DE_DESCARGA"
	ProduccionIniciaDescarga                  Event = "PRODUCCION_INICIA_DESCARGA"
	ProduccionFinalizaDescarga                Event = "PRODUCCION_FINALIZA_DESCARGA"
	LogisticaConfirmaCapturaDePesoEnSAP       Event = "LOGISTICA_CONFIRMA_CAPTURA_DE_PESO_EN_SAP"
	LogisticaCapturaDePesoEnSAP               Event = "LOGISTICA_CAPTURA_DE_PESO_EN_SAP"
	CalidadConfirmaPendienteDeLiberacionEnSAP Event = "CALIDAD_CONFIRMA_PENDIENTE_DE_LIBERACION_EN_SAP"
	CalidadLiberaEnSAP                        Event = "CALIDAD_LIBERA_EN_SAP"
)

// Notice 边触发的通知类型
type Notice int

const (
	NoticeNone Notice = iota
	NoticeArrival
	NoticePendingTest
	NoticePendingUnload
	NoticePendingWeightCapture
	NoticePendingRelease
	NoticeRejected
	NoticeFinished
)

func (n Notice) String() string {
	switch n {
	case NoticeArrival:
		return "arrival"
	case NoticePendingTest:
		return "pending-test"
	case NoticePendingUnload:
		return "pending-unload"
	case NoticePendingWeightCapture:
		return "pending-weight-capture"
	case NoticePendingRelease:
		return "pending-release"
	case NoticeRejected:
		return "rejected"
	case NoticeFinished:
		return "finished"
	}
	return "none"
}

// Edge 状态图中的一条边，即一个业务动作
type Edge struct {
	Step  int
	Keys  []string
	Event Event
	From  State
	To    State
	Role  string

	// Confirmation 为 true 表示这是对待确认状态的确认动作，Prompt 为催促确认时重发的通知
	Confirmation bool
	Prompt       Notice

	// Notice 边生效后通知下一负责角色
	Notice Notice

	// ProcessStatus 非空表示终态边
	ProcessStatus string
}

func (e *Edge) Terminal() bool {
	return e.ProcessStatus != ""
}

// Key 对外使用的主动作名
func (e *Edge) Key() string {
	if len(e.Keys) == 0 {
		return string(e.Event)
	}
	return e.Keys[0]
}

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrIllegalAction = errors.New("illegal action")
)

// IllegalActionError 动作与当前状态不匹配
type IllegalActionError struct {
	Current   State
	LastEvent Event
	Requested Event
	Expected  []Event
}

func (e *IllegalActionError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("no event is allowed after %s", e.LastEvent)
	}
	names := make([]string, 0, len(e.Expected))
	for _, ev := range e.Expected {
		names = append(names, string(ev))
	}
	return fmt.Sprintf("The next event should be %s after %s", strings.Join(names, " or "), e.LastEvent)
}

func (e *IllegalActionError) Unwrap() error {
	return ErrIllegalAction
}

// Graph 收货流程状态图，初始化后只读
type Graph struct {
	initial *Edge
	edges   []*Edge
	byKey   map[string]*Edge
	out     map[State][]*Edge
	rank    map[State]int
}

// New 由边表构建状态图
func New(initial *Edge, edges []*Edge) *Graph {
	g := &Graph{
		initial: initial,
		edges:   edges,
		byKey:   make(map[string]*Edge),
		out:     make(map[State][]*Edge),
		rank:    map[State]int{initial.To: initial.Step},
	}
	for _, e := range edges {
		g.byKey[string(e.Event)] = e
		for _, k := range e.Keys {
			g.byKey[k] = e
		}
		g.out[e.From] = append(g.out[e.From], e)
		if e.Terminal() {
			g.rank[e.To] = math.MaxInt
		} else {
			g.rank[e.To] = e.Step
		}
	}
	return g
}

var reception = New(
	&Edge{Step: 0, Event: VigilanciaRegistraIngreso, To: LogisticaPendienteDeConfirmacionIngreso, Role: userEntity.RoleVigilancia, Notice: NoticeArrival},
	[]*Edge{
		{Step: 1, Keys: []string{"logistica_confirma_ingreso"}, Event: LogisticaConfirmaPendienteDeIngreso,
			From: LogisticaPendienteDeConfirmacionIngreso, To: LogisticaPendienteDeAutorizacion,
			Role: userEntity.RoleLogistica, Confirmation: true, Prompt: NoticeArrival},
		{Step: 2, Keys: []string{"logistica-autorizo-ingreso"}, Event: LogisticaAutorizaIngreso,
			From: LogisticaPendienteDeAutorizacion, To: CalidadPendienteDeConfirmacionDeAnalisis,
			Role: userEntity.RoleLogistica, Notice: NoticePendingTest},
		{Step: 3, Keys: []string{"calidad_confirma_test"}, Event: CalidadConfirmaPendienteDeAnalisis,
			From: CalidadPendienteDeConfirmacionDeAnalisis, To: CalidadProcesando,
			Role: userEntity.RoleCalidad, Confirmation: true, Prompt: NoticePendingTest},
		{Step: 4, Keys: []string{"calidad-rechazo-material"}, Event: CalidadRechazaMaterial,
			From: CalidadProcesando, To: FinalizoProcesoPorRechazo,
			Role: userEntity.RoleCalidad, Notice: NoticeRejected, ProcessStatus: entity.StatusRejected},
		{Step: 5, Keys: []string{"calidad-aprobo-material"}, Event: CalidadApruebaMaterial,
			From: CalidadProcesando, To: ProduccionPendienteDeConfirmacionParaDescarga,
			Role: userEntity.RoleCalidad, Notice: NoticePendingUnload},
		{Step: 6, Keys: []string{"produccion_confirma_descarga"}, Event: ProduccionConfirmaPendienteDeDescarga,
			From: ProduccionPendienteDeConfirmacionParaDescarga, To: ProduccionPendienteDeDescarga,
			Role: userEntity.RoleProduccion, Confirmation: true, Prompt: NoticePendingUnload},
		{Step: 7, Keys: []string{"produccion-descargando"}, Event: ProduccionIniciaDescarga,
			From: ProduccionPendienteDeDescarga, To: ProduccionDescargando,
			Role: userEntity.RoleProduccion},
		{Step: 8, Keys: []string{"descargado"}, Event: ProduccionFinalizaDescarga,
			From: ProduccionDescargando, To: LogisticaPendienteDeConfirmacionCapturaPesoSAP,
			Role: userEntity.RoleProduccion, Notice: NoticePendingWeightCapture},
		{Step: 9, Keys: []string{"logistica_confirma_pendiente_peso_en_sap"}, Event: LogisticaConfirmaCapturaDePesoEnSAP,
			From: LogisticaPendienteDeConfirmacionCapturaPesoSAP, To: LogisticaPendienteDeCapturaPesoSAP,
			Role: userEntity.RoleLogistica, Confirmation: true, Prompt: NoticePendingWeightCapture},
		{Step: 10, Keys: []string{"logistica-capturo-peso-sap"}, Event: LogisticaCapturaDePesoEnSAP,
			From: LogisticaPendienteDeCapturaPesoSAP, To: CalidadPendienteDeConfirmacionLiberacionSAP,
			Role: userEntity.RoleLogistica, Notice: NoticePendingRelease},
		// 旧版客户端会发送拼写错误的 calidad_confima_liberacion_en_sap
		{Step: 11, Keys: []string{"calidad_confirma_liberacion_en_sap", "calidad_confima_liberacion_en_sap"}, Event: CalidadConfirmaPendienteDeLiberacionEnSAP,
			From: CalidadPendienteDeConfirmacionLiberacionSAP, To: CalidadPendienteLiberacionEnSAP,
			Role: userEntity.RoleCalidad, Confirmation: true, Prompt: NoticePendingRelease},
		{Step: 12, Keys: []string{"calidad-libero-sap"}, Event: CalidadLiberaEnSAP,
			From: CalidadPendienteLiberacionEnSAP, To: FinalizoProceso,
			Role: userEntity.RoleCalidad, Notice: NoticeFinished, ProcessStatus: entity.StatusFinished},
	},
)

// Reception 收货流程状态图
func Reception() *Graph {
	return reception
}

// Initial 登记入场的虚拟边
func (g *Graph) Initial() *Edge {
	return g.initial
}

func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Lookup 按动作名或事件名查找边
func (g *Graph) Lookup(key string) (*Edge, bool) {
	e, ok := g.byKey[strings.TrimSpace(key)]
	return e, ok
}

// Next 当前状态下合法的动作
func (g *Graph) Next(s State) []*Edge {
	return g.out[s]
}

// Confirmation 待确认状态上唯一的确认边
func (g *Graph) Confirmation(s State) (*Edge, bool) {
	for _, e := range g.out[s] {
		if e.Confirmation {
			return e, true
		}
	}
	return nil, false
}

// Rank 状态在标准顺序中的位置，终态排在最后
func (g *Graph) Rank(s State) int {
	r, ok := g.rank[s]
	if !ok {
		return -1
	}
	return r
}

// IsTerminal 终态没有出边
func (g *Graph) IsTerminal(s State) bool {
	return g.Rank(s) == math.MaxInt
}

// IsPendingConfirmation 状态名包含待确认标记
func IsPendingConfirmation(s State) bool {
	return strings.Contains(string(s), PendingConfirmationMarker)
}

// Plan 计算从当前状态执行目标边需要追加的事件序列。
// 角色在自己的待确认状态下直接执行下一步动作时，先补上隐含的确认事件。
func (g *Graph) Plan(current State, lastEvent Event, target *Edge) ([]*Edge, error) {
	if target.From == current {
		return []*Edge{target}, nil
	}
	if c, ok := g.Confirmation(current); ok && c.To == target.From && c.Role == target.Role {
		return []*Edge{c, target}, nil
	}

	expected := make([]Event, 0, len(g.out[current]))
	for _, e := range g.out[current] {
		expected = append(expected, e.Event)
	}
	return nil, &IllegalActionError{
		Current:   current,
		LastEvent: lastEvent,
		Requested: target.Event,
		Expected:  expected,
	}
}
