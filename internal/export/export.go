// Package export gera relatórios de presença e de conselheiros em CSV e XLSX.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/portalconselheiros/portal/internal/conselheiro"
	"github.com/portalconselheiros/portal/internal/reuniao"
)

var presencaHeader = []string{
	"ID Reunião",
	"Título Reunião",
	"Data Reunião",
	"Nome Conselheiro",
	"Email Conselheiro",
	"Presente",
	"Horário Chegada",
	"Método Registro",
	"Confiança Facial",
	"ID Dispositivo",
}

var conselheiroHeader = []string{
	"ID",
	"Nome",
	"Email",
	"Cargo",
	"Instituição",
	"Ativo",
	"URL Foto",
}

type reuniaoStore interface {
	Get(ctx context.Context, id uuid.UUID) (reuniao.Reuniao, error)
	ListPresencas(ctx context.Context, reuniaoID uuid.UUID) ([]reuniao.Presenca, error)
}

type conselheiroStore interface {
	List(ctx context.Context) ([]conselheiro.Conselheiro, error)
}

// Service monta os relatórios a partir dos repositórios.
type Service struct {
	reunioes     reuniaoStore
	conselheiros conselheiroStore
}

func NewService(reunioes reuniaoStore, conselheiros conselheiroStore) *Service {
	return &Service{reunioes: reunioes, conselheiros: conselheiros}
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func presencaRow(r reuniao.Reuniao, p reuniao.Presenca) []string {
	presente := "Não"
	if p.Presente {
		presente = "Sim"
	}

	chegada := ""
	if p.HorarioChegada != nil {
		chegada = p.HorarioChegada.Format("02/01/2006 15:04:05")
	}

	confianca := ""
	if p.Confidence != nil {
		confianca = fmt.Sprintf("%.2f", *p.Confidence)
	}

	nome, email := "", ""
	if p.Conselheiro != nil {
		nome = p.Conselheiro.Nome
		email = derefOr(p.Conselheiro.Email, "")
	}

	return []string{
		r.ID.String(),
		r.Titulo,
		r.Data.Format("02/01/2006 15:04"),
		nome,
		email,
		presente,
		chegada,
		string(p.MetodoRegistro),
		confianca,
		derefOr(p.DeviceID, ""),
	}
}

func conselheiroRow(c conselheiro.Conselheiro) []string {
	ativo := "Não"
	if c.Ativo {
		ativo = "Sim"
	}

	return []string{
		c.ID.String(),
		c.Nome,
		derefOr(c.Email, ""),
		derefOr(c.Cargo, ""),
		derefOr(c.Instituicao, ""),
		ativo,
		derefOr(c.FotoRefURL, ""),
	}
}

func (s *Service) presencaRows(ctx context.Context, reuniaoID uuid.UUID) ([][]string, error) {
	r, err := s.reunioes.Get(ctx, reuniaoID)
	if err != nil {
		return nil, err
	}

	presencas, err := s.reunioes.ListPresencas(ctx, reuniaoID)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(presencas)+1)
	rows = append(rows, presencaHeader)
	for _, p := range presencas {
		rows = append(rows, presencaRow(r, p))
	}
	return rows, nil
}

func (s *Service) conselheiroRows(ctx context.Context) ([][]string, error) {
	lista, err := s.conselheiros.List(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(lista)+1)
	rows = append(rows, conselheiroHeader)
	for _, c := range lista {
		rows = append(rows, conselheiroRow(c))
	}
	return rows, nil
}

// PresencasCSV escreve o relatório de presenças de uma reunião.
func (s *Service) PresencasCSV(ctx context.Context, reuniaoID uuid.UUID, w io.Writer) error {
	rows, err := s.presencaRows(ctx, reuniaoID)
	if err != nil {
		return err
	}
	return writeCSV(w, rows)
}

// ConselheirosCSV escreve o cadastro completo de conselheiros.
func (s *Service) ConselheirosCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.conselheiroRows(ctx)
	if err != nil {
		return err
	}
	return writeCSV(w, rows)
}

// PresencasXLSX escreve o relatório de presenças em planilha Excel.
func (s *Service) PresencasXLSX(ctx context.Context, reuniaoID uuid.UUID, w io.Writer) error {
	rows, err := s.presencaRows(ctx, reuniaoID)
	if err != nil {
		return err
	}
	return writeSheet(w, "Presenças", rows)
}

// ConselheirosXLSX escreve o cadastro de conselheiros em planilha Excel.
func (s *Service) ConselheirosXLSX(ctx context.Context, w io.Writer) error {
	rows, err := s.conselheiroRows(ctx)
	if err != nil {
		return err
	}
	return writeSheet(w, "Conselheiros", rows)
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeSheet(w io.Writer, sheet string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, row := range rows {
		cell := "A" + strconv.Itoa(i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(rows[0]), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}

	return f.Write(w)
}
