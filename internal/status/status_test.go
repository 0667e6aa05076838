package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "concluido", Fold("  Concluído "))
	assert.Equal(t, "em andamento", Fold("EM ANDAMENTO"))
	assert.Equal(t, "verificar oleo", Fold("Verificar Óleo"))
}

func TestNormalizeTicket(t *testing.T) {
	cases := map[string]string{
		"Concluído":    Completed,
		"CONCLUIDO":    Completed,
		"concluidos":   Completed,
		"Em Andamento": InProgress,
		"em andamento": InProgress,
		"Aberto":       Open,
		"abertos":      Open,
		"Cancelado":    Cancelled,
		"cancelada":    Cancelled,
	}
	for raw, want := range cases {
		got, ok := NormalizeTicket(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestNormalizeTicketRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "pendente", "done", "xyz"} {
		_, ok := NormalizeTicket(raw)
		assert.False(t, ok, raw)
	}
}

func TestNormalizeSchedule(t *testing.T) {
	got, ok := NormalizeSchedule("Iniciado")
	assert.True(t, ok)
	assert.Equal(t, Started, got)

	got, ok = NormalizeSchedule("concluído")
	assert.True(t, ok)
	assert.Equal(t, ScheduleCompleted, got)

	_, ok = NormalizeSchedule("whatever")
	assert.False(t, ok)
}

func TestIsActive(t *testing.T) {
	assert.True(t, IsActive(Open))
	assert.True(t, IsActive(InProgress))
	assert.False(t, IsActive(Completed))
	assert.False(t, IsActive(Cancelled))
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, TypePreventive, NormalizeType("Preventiva"))
	assert.Equal(t, TypeCorrective, NormalizeType("corretiva"))
	assert.Equal(t, TypeCorrective, NormalizeType(""))
	assert.Equal(t, TypeCorrective, NormalizeType("urgente"))
}
