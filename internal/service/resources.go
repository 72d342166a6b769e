package service

import (
	"time"

	"github.com/noah-isme/sma-web-api/internal/models"
)

// Resource names used in routes, cache keys and metrics.
const (
	ResourceNews          = "news"
	ResourceGallery       = "gallery"
	ResourceAnnouncements = "announcements"
	ResourceStaff         = "staff"
	ResourceStudents      = "students"
	ResourceAlumni        = "alumni"
	ResourceClasses       = "classes"
	ResourceCalendar      = "calendar"
	ResourceStructure     = "structure"
)

// NewsResource describes news posts.
func NewsResource() Resource[models.NewsPost] {
	return Resource[models.NewsPost]{
		Name:            ResourceNews,
		Label:           "berita",
		RequiredFields:  []string{"title", "content"},
		RequiredMessage: "Judul dan konten harus diisi",
		Defaults: func() models.NewsPost {
			return models.NewsPost{Category: "umum"}
		},
		Fallback: defaultNews,
		Unique: []UniqueField[models.NewsPost]{{
			Column:  "slug",
			Value:   func(row *models.NewsPost) interface{} { return row.Slug },
			Message: "Slug sudah digunakan",
		}},
	}
}

// GalleryResource describes gallery images.
func GalleryResource() Resource[models.GalleryImage] {
	return Resource[models.GalleryImage]{
		Name:            ResourceGallery,
		Label:           "galeri",
		RequiredFields:  []string{"title", "image_url"},
		RequiredMessage: "Judul dan gambar harus diisi",
		Defaults: func() models.GalleryImage {
			return models.GalleryImage{Album: "umum", Published: true}
		},
		Fallback: defaultGallery,
	}
}

// AnnouncementResource describes announcements.
func AnnouncementResource() Resource[models.Announcement] {
	return Resource[models.Announcement]{
		Name:            ResourceAnnouncements,
		Label:           "pengumuman",
		RequiredFields:  []string{"title", "content"},
		RequiredMessage: "Judul dan isi pengumuman harus diisi",
		Fallback:        defaultAnnouncements,
	}
}

// StaffResource describes teachers and staff.
func StaffResource() Resource[models.StaffMember] {
	return Resource[models.StaffMember]{
		Name:            ResourceStaff,
		Label:           "data guru dan staf",
		RequiredFields:  []string{"name", "position"},
		RequiredMessage: "Nama dan jabatan harus diisi",
		Defaults: func() models.StaffMember {
			return models.StaffMember{Category: "guru", IsActive: true}
		},
		Fallback: defaultStaff,
		Unique: []UniqueField[models.StaffMember]{{
			Column:  "nip",
			Value:   func(row *models.StaffMember) interface{} { return row.NIP },
			Message: "NIP sudah terdaftar",
		}},
	}
}

// StudentResource describes the student roster.
func StudentResource() Resource[models.Student] {
	return Resource[models.Student]{
		Name:            ResourceStudents,
		Label:           "data siswa",
		RequiredFields:  []string{"name", "class_name"},
		RequiredMessage: "Nama dan kelas harus diisi",
		Defaults: func() models.Student {
			return models.Student{IsActive: true}
		},
		Unique: []UniqueField[models.Student]{{
			Column:  "nis",
			Value:   func(row *models.Student) interface{} { return row.NIS },
			Message: "NIS sudah terdaftar",
		}},
	}
}

// AlumniResource describes alumni profiles.
func AlumniResource() Resource[models.Alumnus] {
	return Resource[models.Alumnus]{
		Name:            ResourceAlumni,
		Label:           "data alumni",
		RequiredFields:  []string{"name", "graduation_year"},
		RequiredMessage: "Nama dan tahun lulus harus diisi",
		Fallback:        defaultAlumni,
	}
}

// ClassResource describes classes.
func ClassResource() Resource[models.Class] {
	return Resource[models.Class]{
		Name:            ResourceClasses,
		Label:           "data kelas",
		RequiredFields:  []string{"name", "grade"},
		RequiredMessage: "Nama kelas dan tingkat harus diisi",
		Defaults: func() models.Class {
			return models.Class{IsActive: true}
		},
		Fallback: defaultClasses,
		Unique: []UniqueField[models.Class]{{
			Column:  "name",
			Value:   func(row *models.Class) interface{} { return row.Name },
			Message: "Nama kelas sudah digunakan",
		}},
	}
}

// CalendarResource describes academic calendar events.
func CalendarResource() Resource[models.CalendarEvent] {
	return Resource[models.CalendarEvent]{
		Name:            ResourceCalendar,
		Label:           "agenda",
		RequiredFields:  []string{"title", "start_date"},
		RequiredMessage: "Judul dan tanggal mulai harus diisi",
		Defaults: func() models.CalendarEvent {
			return models.CalendarEvent{Category: "kegiatan", Published: true}
		},
		Fallback: defaultCalendar,
	}
}

func defaultNews() []models.NewsPost {
	at := time.Date(2024, time.July, 15, 7, 0, 0, 0, time.UTC)
	return []models.NewsPost{
		{
			Base:        models.Base{ID: "default-news-1", CreatedAt: at, UpdatedAt: at},
			Title:       "Penerimaan Peserta Didik Baru Tahun Ajaran 2024/2025",
			Slug:        "penerimaan-peserta-didik-baru",
			Excerpt:     "Pendaftaran peserta didik baru dibuka secara daring. Simak jadwal dan persyaratannya.",
			Category:    "pengumuman",
			Published:   true,
			PublishedAt: &at,
		},
		{
			Base:        models.Base{ID: "default-news-2", CreatedAt: at, UpdatedAt: at},
			Title:       "Siswa Raih Medali Olimpiade Sains Tingkat Provinsi",
			Slug:        "siswa-raih-medali-olimpiade-sains",
			Excerpt:     "Tim olimpiade sekolah membawa pulang dua medali emas dan satu perak.",
			Category:    "prestasi",
			Published:   true,
			PublishedAt: &at,
		},
		{
			Base:        models.Base{ID: "default-news-3", CreatedAt: at, UpdatedAt: at},
			Title:       "Kegiatan Bakti Sosial OSIS",
			Slug:        "kegiatan-bakti-sosial-osis",
			Excerpt:     "OSIS menyelenggarakan bakti sosial di lingkungan sekitar sekolah.",
			Category:    "kegiatan",
			Published:   true,
			PublishedAt: &at,
		},
	}
}

func defaultGallery() []models.GalleryImage {
	return []models.GalleryImage{
		{Base: models.Base{ID: "default-gallery-1"}, Title: "Upacara Bendera", Album: "kegiatan", Published: true, DisplayOrder: 1},
		{Base: models.Base{ID: "default-gallery-2"}, Title: "Laboratorium Sains", Album: "fasilitas", Published: true, DisplayOrder: 2},
		{Base: models.Base{ID: "default-gallery-3"}, Title: "Perpustakaan", Album: "fasilitas", Published: true, DisplayOrder: 3},
	}
}

func defaultAnnouncements() []models.Announcement {
	return []models.Announcement{{
		Base:      models.Base{ID: "default-announcement-1"},
		Title:     "Selamat datang di website resmi sekolah",
		Content:   "Informasi terbaru seputar kegiatan sekolah akan diumumkan di halaman ini.",
		Published: true,
	}}
}

func defaultStaff() []models.StaffMember {
	return []models.StaffMember{
		{Base: models.Base{ID: "default-staff-1"}, Name: "Kepala Sekolah", Position: "Kepala Sekolah", Category: "pimpinan", DisplayOrder: 1, IsActive: true},
		{Base: models.Base{ID: "default-staff-2"}, Name: "Wakil Kepala Sekolah", Position: "Wakil Kepala Bidang Kurikulum", Category: "pimpinan", DisplayOrder: 2, IsActive: true},
	}
}

func defaultAlumni() []models.Alumnus {
	return []models.Alumnus{{
		Base:           models.Base{ID: "default-alumni-1"},
		Name:           "Alumni Berprestasi",
		GraduationYear: 2020,
		CurrentStatus:  "Mahasiswa",
		Institution:    "Perguruan Tinggi Negeri",
		Testimonial:    "Sekolah ini membekali saya dengan disiplin dan semangat belajar.",
		Published:      true,
	}}
}

func defaultClasses() []models.Class {
	return []models.Class{
		{Base: models.Base{ID: "default-class-1"}, Name: "X-1", Grade: "X", IsActive: true},
		{Base: models.Base{ID: "default-class-2"}, Name: "XI IPA 1", Grade: "XI", Major: "IPA", IsActive: true},
		{Base: models.Base{ID: "default-class-3"}, Name: "XII IPS 1", Grade: "XII", Major: "IPS", IsActive: true},
	}
}

func defaultCalendar() []models.CalendarEvent {
	return []models.CalendarEvent{
		{Base: models.Base{ID: "default-calendar-1"}, Title: "Masa Pengenalan Lingkungan Sekolah", Category: "kegiatan", StartDate: models.NewDate(2024, time.July, 15), Published: true},
		{Base: models.Base{ID: "default-calendar-2"}, Title: "Penilaian Tengah Semester", Category: "ujian", StartDate: models.NewDate(2024, time.September, 23), Published: true},
	}
}

func defaultStructure() []models.StructureNode {
	root := "default-structure-1"
	return []models.StructureNode{
		{Base: models.Base{ID: root}, Name: "Kepala Sekolah", Position: "Kepala Sekolah", DisplayOrder: 1, IsActive: true},
		{Base: models.Base{ID: "default-structure-2"}, Name: "Wakil Kepala Sekolah", Position: "Wakil Kepala Bidang Kurikulum", ParentID: &root, DisplayOrder: 1, IsActive: true},
		{Base: models.Base{ID: "default-structure-3"}, Name: "Kepala Tata Usaha", Position: "Kepala Tata Usaha", ParentID: &root, DisplayOrder: 2, IsActive: true},
	}
}
