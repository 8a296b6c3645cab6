package workflow

import (
	"errors"
	"testing"

	"LiveDock/internal/modules/reception/domain/entity"
	userEntity "LiveDock/internal/modules/user/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_HappyPathFollowsCanonicalOrder(t *testing.T) {
	g := Reception()
	keys := []string{
		"logistica_confirma_ingreso",
		"logistica-autorizo-ingreso",
		"calidad_confirma_test",
		"calidad-aprobo-material",
		"produccion_confirma_descarga",
		"produccion-descargando",
		"descargado",
		"logistica_confirma_pendiente_peso_en_sap",
		"logistica-capturo-peso-sap",
		"calidad_confirma_liberacion_en_sap",
		"calidad-libero-sap",
	}

	state := g.Initial().To
	last := g.Initial().Event
	prevRank := g.Rank(state)
	for _, k := range keys {
		e, ok := g.Lookup(k)
		require.True(t, ok, k)
		plan, err := g.Plan(state, last, e)
		require.NoError(t, err, k)
		require.Len(t, plan, 1, k)
		state, last = e.To, e.Event
		assert.Greater(t, g.Rank(state), prevRank, k)
		prevRank = g.Rank(state)
	}
	assert.Equal(t, FinalizoProceso, state)
	assert.True(t, g.IsTerminal(state))
}

func TestGraph_RejectionIsAlternateEdge(t *testing.T) {
	g := Reception()
	next := g.Next(CalidadProcesando)
	require.Len(t, next, 2)

	reject, ok := g.Lookup("calidad-rechazo-material")
	require.True(t, ok)
	assert.Equal(t, entity.StatusRejected, reject.ProcessStatus)
	assert.True(t, g.IsTerminal(reject.To))
	assert.Empty(t, g.Next(reject.To))

	// 审批通过后拒绝边不再可达
	_, err := g.Plan(ProduccionPendienteDeConfirmacionParaDescarga, CalidadApruebaMaterial, reject)
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestGraph_LookupAcceptsEventNamesAndAlias(t *testing.T) {
	g := Reception()

	byEvent, ok := g.Lookup(string(LogisticaAutorizaIngreso))
	require.True(t, ok)
	byKey, ok := g.Lookup("logistica-autorizo-ingreso")
	require.True(t, ok)
	assert.Same(t, byKey, byEvent)

	alias, ok := g.Lookup("calidad_confima_liberacion_en_sap")
	require.True(t, ok)
	assert.Equal(t, CalidadConfirmaPendienteDeLiberacionEnSAP, alias.Event)

	_, ok = g.Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestGraph_PlanInsertsImplicitConfirmation(t *testing.T) {
	g := Reception()
	authorize, _ := g.Lookup("logistica-autorizo-ingreso")

	plan, err := g.Plan(LogisticaPendienteDeConfirmacionIngreso, VigilanciaRegistraIngreso, authorize)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, LogisticaConfirmaPendienteDeIngreso, plan[0].Event)
	assert.True(t, plan[0].Confirmation)
	assert.Equal(t, LogisticaAutorizaIngreso, plan[1].Event)
}

func TestGraph_PlanRejectsSkippedSteps(t *testing.T) {
	g := Reception()
	// 一次跨越多步的动作不合法
	descargado, _ := g.Lookup("descargado")
	_, err := g.Plan(ProduccionPendienteDeConfirmacionParaDescarga, CalidadApruebaMaterial, descargado)
	require.Error(t, err)

	var illegal *IllegalActionError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, []Event{ProduccionConfirmaPendienteDeDescarga}, illegal.Expected)
	assert.Equal(t, "The next event should be PRODUCCION_CONFIRMA_PENDIENTE_DE_DESCARGA after CALIDAD_APRUEBA_MATERIAL", err.Error())
}

func TestGraph_PendingConfirmationStatesOwnOneConfirmation(t *testing.T) {
	g := Reception()
	pending := map[State]struct {
		role   string
		prompt Notice
	}{
		LogisticaPendienteDeConfirmacionIngreso:        {userEntity.RoleLogistica, NoticeArrival},
		CalidadPendienteDeConfirmacionDeAnalisis:       {userEntity.RoleCalidad, NoticePendingTest},
		ProduccionPendienteDeConfirmacionParaDescarga:  {userEntity.RoleProduccion, NoticePendingUnload},
		LogisticaPendienteDeConfirmacionCapturaPesoSAP: {userEntity.RoleLogistica, NoticePendingWeightCapture},
		CalidadPendienteDeConfirmacionLiberacionSAP:    {userEntity.RoleCalidad, NoticePendingRelease},
	}

	seen := 0
	for _, e := range g.Edges() {
		if !IsPendingConfirmation(e.To) {
			continue
		}
		seen++
		want, ok := pending[e.To]
		require.True(t, ok, e.To)
		c, ok := g.Confirmation(e.To)
		require.True(t, ok, e.To)
		assert.Equal(t, want.role, c.Role)
		assert.Equal(t, want.prompt, c.Prompt)
	}
	// 初始状态不在边表的 To 中
	assert.Equal(t, len(pending)-1, seen)
	assert.True(t, IsPendingConfirmation(g.Initial().To))
	assert.False(t, IsPendingConfirmation(CalidadPendienteLiberacionEnSAP))
}

func TestGraph_RankUnknownState(t *testing.T) {
	assert.Equal(t, -1, Reception().Rank(State("NOPE")))
}
