package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Sumuditha-Janith/obscura-backend/internal/clock"
	"github.com/Sumuditha-Janith/obscura-backend/internal/metrics"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
	"github.com/go-pdf/fpdf"
)

// 报表时间范围
const (
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
	RangeAll   = "all"
)

// RangeStart 计算范围起点；all 返回 nil
func RangeStart(rangeName string, now time.Time) (*time.Time, error) {
	var since time.Time
	switch rangeName {
	case RangeWeek:
		since = now.AddDate(0, 0, -7)
	case RangeMonth:
		since = now.AddDate(0, -1, 0)
	case RangeYear:
		since = now.AddDate(-1, 0, 0)
	case RangeAll, "":
		return nil, nil
	default:
		return nil, invalid("range", "must be week, month, year or all")
	}
	since = since.UTC()
	return &since, nil
}

// Report 生成好的 PDF
type Report struct {
	Filename string
	Data     []byte
}

// ReportService 统计数据排版为分页 PDF
type ReportService struct {
	media    *repository.MediaRepository
	episodes *repository.EpisodeRepository
	stats    *StatsService
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func NewReportService(media *repository.MediaRepository, episodes *repository.EpisodeRepository, stats *StatsService, clk clock.Clock, m *metrics.Metrics) *ReportService {
	return &ReportService{media: media, episodes: episodes, stats: stats, clock: clk, metrics: m}
}

// showSection 一部剧及范围内已看的单集
type showSection struct {
	show     *model.Media
	episodes []*model.Episode
}

// Render 按范围过滤后汇总并排版
func (s *ReportService) Render(ctx context.Context, user *model.User, rangeName string) (*Report, error) {
	if rangeName == "" {
		rangeName = RangeAll
	}
	now := s.clock.Now()
	since, err := RangeStart(rangeName, now)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats.Compute(ctx, user.ID, since)
	if err != nil {
		return nil, err
	}
	movies, err := s.media.ListAll(ctx, repository.MediaFilter{
		UserID: user.ID,
		Type:   model.MediaTypeMovie,
		Status: model.WatchStatusCompleted,
		Since:  since,
	})
	if err != nil {
		return nil, err
	}
	shows, err := s.media.ListAll(ctx, repository.MediaFilter{
		UserID: user.ID,
		Type:   model.MediaTypeTV,
		Since:  since,
	})
	if err != nil {
		return nil, err
	}
	watched, err := s.episodes.ListWatched(ctx, user.ID, since)
	if err != nil {
		return nil, err
	}

	byShow := map[int][]*model.Episode{}
	for _, ep := range watched {
		byShow[ep.ShowID] = append(byShow[ep.ShowID], ep)
	}
	var sections []showSection
	for _, sh := range shows {
		if sh.WatchStatus == model.WatchStatusPlanned {
			continue
		}
		eps := byShow[sh.CatalogID]
		sortEpisodes(eps)
		sections = append(sections, showSection{show: sh, episodes: eps})
	}

	var buf bytes.Buffer
	if err := renderPDF(&buf, user, rangeName, since, now, stats, movies, sections); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	s.metrics.Report(rangeName)

	return &Report{
		Filename: fmt.Sprintf("obscura-report-%s-%s.pdf", rangeName, now.Format("20060102")),
		Data:     buf.Bytes(),
	}, nil
}

func sortEpisodes(eps []*model.Episode) {
	sort.Slice(eps, func(i, j int) bool {
		if eps[i].SeasonNumber != eps[j].SeasonNumber {
			return eps[i].SeasonNumber < eps[j].SeasonNumber
		}
		return eps[i].EpisodeNumber < eps[j].EpisodeNumber
	})
}

const (
	pageMarginMM = 15.0
	rowHeightMM  = 7.0
)

type column struct {
	title string
	width float64
	align string
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func renderPDF(w *bytes.Buffer, user *model.User, rangeName string, since *time.Time, now time.Time,
	stats *Stats, movies []*model.Media, sections []showSection) error {

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMarginMM, pageMarginMM, pageMarginMM)
	pdf.SetAutoPageBreak(true, pageMarginMM)
	pdf.SetTitle("Obscura watch report", true)
	pdf.SetCreator("obscura-backend", true)
	pdf.SetCreationDate(now)
	pdf.AliasNbPages("")

	pw := &pdfWriter{pdf: pdf, tr: cp1252Translator(pdf)}

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, pw.tr("Obscura watch report - "+displayName(user)), "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()

	// 标题
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Watch Activity Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	period := "All time"
	if since != nil {
		period = fmt.Sprintf("%s to %s", since.Format("2006-01-02"), now.Format("2006-01-02"))
	}
	pdf.CellFormat(0, 6, pw.tr(fmt.Sprintf("%s <%s>", displayName(user), user.Email)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Range: %s (%s)", rangeName, period), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated: "+now.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// 汇总
	pw.section("Summary")
	summary := [][2]string{
		{"Titles in range", strconv.FormatInt(stats.TotalItems, 10)},
		{"Planned / Watching / Completed", fmt.Sprintf("%d / %d / %d", stats.ByStatus.Planned, stats.ByStatus.Watching, stats.ByStatus.Completed)},
		{"Movies / TV shows", fmt.Sprintf("%d / %d", stats.ByType.Movie, stats.ByType.TV)},
		{"Completed movie time", stats.WatchTime.Movie},
		{"Completed TV time", stats.WatchTime.TV},
		{"Total completed time", stats.WatchTime.Total},
		{"Episodes watched", fmt.Sprintf("%d (%s)", stats.Episodes.Watched, stats.Episodes.WatchedTime)},
		{"Episodes skipped", strconv.FormatInt(stats.Episodes.Skipped, 10)},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range summary {
		pdf.CellFormat(70, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// 已看完电影
	pw.section(fmt.Sprintf("Completed movies (%d)", len(movies)))
	movieCols := []column{
		{"#", 10, "R"}, {"Title", 80, "L"}, {"Released", 25, "C"},
		{"Rating", 15, "C"}, {"Time", 25, "R"}, {"Running total", 25, "R"},
	}
	if len(movies) == 0 {
		pw.note("No completed movies in this range.")
	} else {
		pw.tableHeader(movieCols)
		running := 0
		for i, m := range movies {
			running += m.WatchTimeMinutes
			pw.tableRow(movieCols, []string{
				strconv.Itoa(i + 1),
				m.Title,
				m.ReleaseDate,
				ratingText(m.Rating),
				utils.FormatMinutes(m.WatchTimeMinutes),
				utils.FormatMinutes(running),
			})
		}
	}
	pdf.Ln(4)

	// 剧集
	pw.section(fmt.Sprintf("TV shows (%d)", len(sections)))
	epCols := []column{
		{"Episode", 20, "L"}, {"Title", 85, "L"}, {"Watched", 30, "C"},
		{"Runtime", 20, "R"}, {"Running total", 25, "R"},
	}
	if len(sections) == 0 {
		pw.note("No TV shows in progress or completed in this range.")
	}
	for _, sec := range sections {
		pw.ensureSpace(rowHeightMM * 3)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, pw.tr(fmt.Sprintf("%s  [%s]  %s", sec.show.Title, sec.show.WatchStatus,
			utils.FormatMinutes(sec.show.WatchTimeMinutes))), "", 1, "L", false, 0, "")
		if len(sec.episodes) == 0 {
			pw.note("No episodes watched in this range.")
			pdf.Ln(2)
			continue
		}
		pw.tableHeader(epCols)
		running := 0
		for _, ep := range sec.episodes {
			running += ep.Runtime
			watchedAt := ""
			if ep.WatchedAt != nil {
				watchedAt = ep.WatchedAt.Format("2006-01-02")
			}
			pw.tableRow(epCols, []string{
				ep.Code(),
				ep.Title,
				watchedAt,
				strconv.Itoa(ep.Runtime) + "m",
				utils.FormatMinutes(running),
			})
		}
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func (pw *pdfWriter) section(title string) {
	pw.ensureSpace(rowHeightMM * 3)
	pw.pdf.SetFont("Helvetica", "B", 13)
	pw.pdf.SetFillColor(230, 230, 240)
	pw.pdf.CellFormat(0, 8, pw.tr(title), "", 1, "L", true, 0, "")
	pw.pdf.Ln(1)
}

func (pw *pdfWriter) note(text string) {
	pw.pdf.SetFont("Helvetica", "I", 9)
	pw.pdf.CellFormat(0, 6, pw.tr(text), "", 1, "L", false, 0, "")
}

// ensureSpace 剩余空间不足时换页
func (pw *pdfWriter) ensureSpace(h float64) {
	_, pageH := pw.pdf.GetPageSize()
	if pw.pdf.GetY()+h > pageH-pageMarginMM {
		pw.pdf.AddPage()
	}
}

func (pw *pdfWriter) tableHeader(cols []column) {
	pw.ensureSpace(rowHeightMM * 2)
	pw.pdf.SetFont("Helvetica", "B", 9)
	pw.pdf.SetFillColor(245, 245, 245)
	for _, c := range cols {
		pw.pdf.CellFormat(c.width, rowHeightMM, c.title, "B", 0, c.align, true, 0, "")
	}
	pw.pdf.Ln(-1)
}

// tableRow 换页时重复表头
func (pw *pdfWriter) tableRow(cols []column, values []string) {
	_, pageH := pw.pdf.GetPageSize()
	if pw.pdf.GetY()+rowHeightMM > pageH-pageMarginMM {
		pw.pdf.AddPage()
		pw.tableHeader(cols)
	}
	pw.pdf.SetFont("Helvetica", "", 9)
	for i, c := range cols {
		pw.pdf.CellFormat(c.width, rowHeightMM, pw.fit(values[i], c.width), "", 0, c.align, false, 0, "")
	}
	pw.pdf.Ln(-1)
}

// fit 截断超出列宽的文本（转码后为单字节编码，可按字节截断）
func (pw *pdfWriter) fit(s string, width float64) string {
	s = pw.tr(s)
	limit := width - 2
	if pw.pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && pw.pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// cp1252 在 0x80-0x9F 区间额外收录的字符
var cp1252Extras = map[rune]bool{
	'€': true, '‚': true, 'ƒ': true, '„': true, '…': true, '†': true, '‡': true,
	'ˆ': true, '‰': true, 'Š': true, '‹': true, 'Œ': true, 'Ž': true, '‘': true,
	'’': true, '“': true, '”': true, '•': true, '–': true, '—': true, '˜': true,
	'™': true, 'š': true, '›': true, 'œ': true, 'ž': true, 'Ÿ': true,
}

func cp1252Translator(pdf *fpdf.Fpdf) func(string) string {
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	return func(s string) string { return translate(cp1252Safe(s)) }
}

// cp1252Safe 把核心字体无法表示的字符替换为 '?'，转码后每个字符一个字节
func cp1252Safe(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == utf8.RuneError:
			b.WriteByte('?')
		case r < 0x80, r >= 0xA0 && r <= 0xFF, cp1252Extras[r]:
			b.WriteRune(r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

func ratingText(r *int) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%d/5", *r)
}
